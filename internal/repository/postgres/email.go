package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
)

type EmailRepo struct {
	DB DBTX
}

const verificationColumns = `id, account_id, email, code, created_at, expires_at, status`

const createVerification = `-- name: createVerification
INSERT INTO email_verifications (id, account_id, email, code, created_at, expires_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + verificationColumns + `
`

func (r *EmailRepo) CreateVerification(ctx context.Context, v models.EmailVerification) (models.EmailVerification, error) {
	rows, _ := r.DB.Query(ctx, createVerification,
		v.ID,
		v.AccountID,
		v.Email,
		v.Code,
		v.CreatedAt,
		v.ExpiresAt,
		v.Status,
	)
	created, err := pgx.CollectOneRow(rows, rowToVerification)

	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getPendingVerification = `-- name: getPendingVerification
SELECT ` + verificationColumns + ` FROM email_verifications
WHERE account_id = $1 AND status = 'PENDING'
ORDER BY created_at DESC
LIMIT 1
`

func (r *EmailRepo) GetPending(ctx context.Context, accountID int64) (models.EmailVerification, error) {
	rows, _ := r.DB.Query(ctx, getPendingVerification, accountID)
	v, err := pgx.CollectOneRow(rows, rowToVerification)

	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, pgx.ErrNoRows):
		return v, apperrors.ErrVerificationNotFound
	default:
		return v, fmt.Errorf("db error: %w", err)
	}
}

const updateVerificationStatus = `-- name: updateVerificationStatus
UPDATE email_verifications
SET status = $2
WHERE id = $1
`

func (r *EmailRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.DB.Exec(ctx, updateVerificationStatus, id, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrVerificationNotFound
	}

	return nil
}

func rowToVerification(row pgx.CollectableRow) (models.EmailVerification, error) {
	var v models.EmailVerification
	err := row.Scan(
		&v.ID,
		&v.AccountID,
		&v.Email,
		&v.Code,
		&v.CreatedAt,
		&v.ExpiresAt,
		&v.Status,
	)
	return v, err
}
