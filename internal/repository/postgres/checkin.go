package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
)

type CheckinRepo struct {
	DB DBTX
}

const createCheckin = `-- name: createCheckin
INSERT INTO checkins (account_id, checkin_date, base_points, bonus_points, created_at)
VALUES ($1, $2, $3, $4, $5)
`

func (r *CheckinRepo) Create(ctx context.Context, record models.CheckinRecord) error {
	_, err := r.DB.Exec(ctx, createCheckin,
		record.AccountID,
		record.Date,
		record.BasePoints,
		record.BonusPoints,
		record.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperrors.ErrAlreadyCheckedIn
		}

		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
