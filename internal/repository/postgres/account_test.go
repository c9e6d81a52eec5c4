package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/repository"
	"github.com/nkiryanov/pointsbot/internal/testutil"
)

func TestAccounts(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Create repository over transaction that rolls back at the end
	// May be called several times (aka transaction in transaction)
	withRepo := func(t *testing.T, db DBTX, fn func(pgx.Tx, *AccountRepo)) {
		testutil.InTx(db, t, func(tx pgx.Tx) {
			fn(tx, &AccountRepo{DB: tx})
		})
	}

	t.Run("GetOrCreateAccount", func(t *testing.T) {
		t.Run("creates zero balance account", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				account, err := repo.GetOrCreateAccount(t.Context(), 100, "alice")

				require.NoError(t, err)
				require.Equal(t, int64(100), account.UserID)
				require.Equal(t, "alice", account.Username)
				require.Zero(t, account.Available)
				require.Zero(t, account.Frozen)
				require.Zero(t, account.StreakDays)
				require.Nil(t, account.LastCheckinDate)
				require.WithinDuration(t, time.Now(), account.CreatedAt, time.Second)
			})
		})

		t.Run("returns existing account as is", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.GetOrCreateAccount(t.Context(), 100, "alice")
				require.NoError(t, err)
				_, err = repo.AdjustBalance(t.Context(), 100, 42, 0)
				require.NoError(t, err)

				account, err := repo.GetOrCreateAccount(t.Context(), 100, "renamed")

				require.NoError(t, err)
				require.Equal(t, int64(42), account.Available, "existing balance must be kept")
				require.Equal(t, "alice", account.Username, "existing username must be kept")
			})
		})
	})

	t.Run("GetAccount", func(t *testing.T) {
		t.Run("not found", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.GetAccount(t.Context(), 999)

				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})
		})
	})

	t.Run("AdjustBalance", func(t *testing.T) {
		t.Run("credit and freeze", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.GetOrCreateAccount(t.Context(), 100, "alice")
				require.NoError(t, err)

				account, err := repo.AdjustBalance(t.Context(), 100, 100, 0)
				require.NoError(t, err)
				require.Equal(t, int64(100), account.Available)

				// Freeze part of the balance: total stays the same
				account, err = repo.AdjustBalance(t.Context(), 100, -40, 40)
				require.NoError(t, err)
				require.Equal(t, int64(60), account.Available)
				require.Equal(t, int64(40), account.Frozen)
			})
		})

		t.Run("negative available fails", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.GetOrCreateAccount(t.Context(), 100, "alice")
				require.NoError(t, err)
				_, err = repo.AdjustBalance(t.Context(), 100, 10, 0)
				require.NoError(t, err)

				_, err = repo.AdjustBalance(t.Context(), 100, -11, 0)

				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
			})
		})

		t.Run("negative frozen fails", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.GetOrCreateAccount(t.Context(), 100, "alice")
				require.NoError(t, err)

				_, err = repo.AdjustBalance(t.Context(), 100, 0, -1)

				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
			})
		})

		t.Run("unknown account fails", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.AdjustBalance(t.Context(), 999, 10, 0)

				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})
		})
	})

	t.Run("SetEmail", func(t *testing.T) {
		t.Run("email taken by another account", func(t *testing.T) {
			withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
				_, err := repo.GetOrCreateAccount(t.Context(), 100, "alice")
				require.NoError(t, err)
				_, err = repo.GetOrCreateAccount(t.Context(), 200, "bob")
				require.NoError(t, err)

				_, err = repo.SetEmail(t.Context(), 100, "alice@example.com", true)
				require.NoError(t, err)

				_, err = repo.SetEmail(t.Context(), 200, "alice@example.com", true)

				require.ErrorIs(t, err, apperrors.ErrEmailTaken)
			})
		})
	})

	t.Run("ListAccounts", func(t *testing.T) {
		withRepo(t, pg.Pool, func(tx pgx.Tx, repo *AccountRepo) {
			for _, seed := range []struct {
				userID    int64
				available int64
				streak    int
			}{
				{1, 30, 5},
				{2, 10, 9},
				{3, 20, 1},
			} {
				_, err := repo.GetOrCreateAccount(t.Context(), seed.userID, "user")
				require.NoError(t, err)
				_, err = repo.AdjustBalance(t.Context(), seed.userID, seed.available, 0)
				require.NoError(t, err)
				_, err = repo.UpdateCheckinStats(t.Context(), seed.userID, repository.CheckinStats{
					StreakDays:      seed.streak,
					MaxStreakDays:   seed.streak,
					TotalCheckins:   1,
					MonthlyCheckins: 1,
					LastCheckinDate: time.Now(),
				})
				require.NoError(t, err)
			}

			t.Run("by points", func(t *testing.T) {
				accounts, err := repo.ListAccounts(t.Context(), repository.ListAccountsOpts{OrderBy: repository.OrderByPoints, Limit: 2})

				require.NoError(t, err)
				require.Len(t, accounts, 2)
				require.Equal(t, int64(1), accounts[0].UserID)
				require.Equal(t, int64(3), accounts[1].UserID)
			})

			t.Run("by streak", func(t *testing.T) {
				accounts, err := repo.ListAccounts(t.Context(), repository.ListAccountsOpts{OrderBy: repository.OrderByStreak, Limit: 10})

				require.NoError(t, err)
				require.Equal(t, int64(2), accounts[0].UserID)
			})
		})
	})
}
