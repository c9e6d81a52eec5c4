package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const accountColumns = `user_id, username, created_at, available, frozen,
	streak_days, max_streak_days, total_checkins, monthly_checkins,
	last_checkin_date, email, email_verified`

const getAccount = `-- name: getAccount
SELECT ` + accountColumns + ` FROM accounts
WHERE user_id = $1
`

func (r *AccountRepo) GetAccount(ctx context.Context, userID int64) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getAccount, userID)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

// Create account with zero balance on first interaction
// If the account exists already return it as is
const getOrCreateAccount = `-- name: getOrCreateAccount
WITH new_account AS (
	INSERT INTO accounts (user_id, username)
	VALUES ($1, $2)
	ON CONFLICT (user_id) DO NOTHING
	RETURNING ` + accountColumns + `
)
SELECT * FROM new_account
UNION
SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1
`

func (r *AccountRepo) GetOrCreateAccount(ctx context.Context, userID int64, username string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getOrCreateAccount, userID, username)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const adjustBalance = `-- name: adjustBalance
UPDATE accounts
SET available = available + $2, frozen = frozen + $3
WHERE user_id = $1
RETURNING ` + accountColumns + `
`

func (r *AccountRepo) AdjustBalance(ctx context.Context, userID int64, availableDelta int64, frozenDelta int64) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, adjustBalance, userID, availableDelta, frozenDelta)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return account, apperrors.ErrInsufficientFunds
		}

		return account, fmt.Errorf("db error: %w", err)
	}
}

const updateCheckinStats = `-- name: updateCheckinStats
UPDATE accounts
SET streak_days = $2,
	max_streak_days = $3,
	total_checkins = $4,
	monthly_checkins = $5,
	last_checkin_date = $6
WHERE user_id = $1
RETURNING ` + accountColumns + `
`

func (r *AccountRepo) UpdateCheckinStats(ctx context.Context, userID int64, stats repository.CheckinStats) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, updateCheckinStats,
		userID,
		stats.StreakDays,
		stats.MaxStreakDays,
		stats.TotalCheckins,
		stats.MonthlyCheckins,
		stats.LastCheckinDate,
	)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const setEmail = `-- name: setEmail
UPDATE accounts
SET email = $2, email_verified = $3
WHERE user_id = $1
RETURNING ` + accountColumns + `
`

func (r *AccountRepo) SetEmail(ctx context.Context, userID int64, email string, verified bool) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, setEmail, userID, email, verified)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return account, apperrors.ErrEmailTaken
		}

		return account, fmt.Errorf("db error: %w", err)
	}
}

const listAccounts = `-- name: listAccounts
SELECT ` + accountColumns + ` FROM accounts
ORDER BY
	CASE WHEN $1 = 'points' THEN available END DESC,
	CASE WHEN $1 = 'streak' THEN streak_days END DESC,
	CASE WHEN $1 = 'monthly' THEN monthly_checkins END DESC,
	user_id
LIMIT $2
`

func (r *AccountRepo) ListAccounts(ctx context.Context, opts repository.ListAccountsOpts) ([]models.Account, error) {
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = repository.OrderByPoints
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, _ := r.DB.Query(ctx, listAccounts, orderBy, limit)
	accounts, err := pgx.CollectRows(rows, rowToAccount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return accounts, nil
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.UserID,
		&a.Username,
		&a.CreatedAt,
		&a.Available,
		&a.Frozen,
		&a.StreakDays,
		&a.MaxStreakDays,
		&a.TotalCheckins,
		&a.MonthlyCheckins,
		&a.LastCheckinDate,
		&a.Email,
		&a.EmailVerified,
	)
	return a, err
}
