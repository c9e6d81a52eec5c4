package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, created_at, account_id, counterparty_id,
	amount, kind, status, description, expires_at`

const createTransaction = `-- name: createTransaction
INSERT INTO transactions (id, created_at, account_id, counterparty_id, amount, kind, status, description, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + transactionColumns + `
`

func (r *TransactionRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction,
		t.ID,
		t.CreatedAt,
		t.AccountID,
		t.CounterpartyID,
		t.Amount,
		t.Kind,
		t.Status,
		t.Description,
		t.ExpiresAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getTransactionByID = `-- name: getTransactionByID
SELECT ` + transactionColumns + ` FROM transactions
WHERE id = $1
`

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByID, id)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const listTransactions = `-- name: listTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE ($1::bigint IS NULL OR account_id = $1)
	AND ($2::text[] IS NULL OR kind = ANY($2))
	AND ($3::text[] IS NULL OR status = ANY($3))
ORDER BY created_at DESC
LIMIT $4
`

func (r *TransactionRepo) List(ctx context.Context, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, _ := r.DB.Query(ctx, listTransactions, opts.AccountID, opts.Kinds, opts.Statuses, limit)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

// The WHERE status = 'PENDING' guard makes this query the single
// linearization point for racing resolvers: the row is locked while one
// of them transitions it, the others match zero rows.
const updateTransactionStatus = `-- name: updateTransactionStatus
UPDATE transactions
SET status = $2
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + transactionColumns + `
`

func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (models.Transaction, error) {
	var t models.Transaction

	if newStatus == models.TxStatusPending {
		return t, apperrors.ErrInvalidStateTransition
	}

	rows, _ := r.DB.Query(ctx, updateTransactionStatus, id, newStatus)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either missing or already resolved: tell the caller which
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return t, getErr
		}
		return t, apperrors.ErrInvalidStateTransition
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const listExpiredTransactions = `-- name: listExpiredTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at <= $1
ORDER BY expires_at
LIMIT $2
`

func (r *TransactionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, _ := r.DB.Query(ctx, listExpiredTransactions, now, limit)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.CreatedAt,
		&t.AccountID,
		&t.CounterpartyID,
		&t.Amount,
		&t.Kind,
		&t.Status,
		&t.Description,
		&t.ExpiresAt,
	)
	return t, err
}
