package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
	"github.com/nkiryanov/pointsbot/internal/testutil"
)

func TestTransactions(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withRepos := func(t *testing.T, db DBTX, fn func(accounts *AccountRepo, transactions *TransactionRepo)) {
		testutil.InTx(db, t, func(tx pgx.Tx) {
			accounts := &AccountRepo{DB: tx}

			// Transactions always reference accounts
			_, err := accounts.GetOrCreateAccount(t.Context(), 100, "alice")
			require.NoError(t, err)
			_, err = accounts.GetOrCreateAccount(t.Context(), 200, "bob")
			require.NoError(t, err)

			fn(accounts, &TransactionRepo{DB: tx})
		})
	}

	t.Run("Create", func(t *testing.T) {
		withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
			record := repository.NewTransaction(100, -40, models.TxKindGiftSent,
				repository.WithCounterparty(200),
				repository.WithDescription("gift to bob"),
				repository.WithTTL(24*time.Hour),
			)

			created, err := repo.Create(t.Context(), record)

			require.NoError(t, err)
			require.Equal(t, record.ID, created.ID)
			require.Equal(t, int64(-40), created.Amount)
			require.Equal(t, models.TxKindGiftSent, created.Kind)
			require.Equal(t, models.TxStatusPending, created.Status)
			require.NotNil(t, created.CounterpartyID)
			require.Equal(t, int64(200), *created.CounterpartyID)
			require.NotNil(t, created.ExpiresAt)
			require.WithinDuration(t, record.CreatedAt.Add(24*time.Hour), *created.ExpiresAt, time.Second)
		})
	})

	t.Run("GetByID", func(t *testing.T) {
		t.Run("not found", func(t *testing.T) {
			withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
				_, err := repo.GetByID(t.Context(), uuid.New())

				require.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
			})
		})
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		t.Run("pending to terminal ok", func(t *testing.T) {
			withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
				record, err := repo.Create(t.Context(), repository.NewTransaction(100, -40, models.TxKindGiftSent, repository.WithTTL(time.Hour)))
				require.NoError(t, err)

				updated, err := repo.UpdateStatus(t.Context(), record.ID, models.TxStatusCompleted)

				require.NoError(t, err)
				require.Equal(t, models.TxStatusCompleted, updated.Status)
			})
		})

		t.Run("terminal is final", func(t *testing.T) {
			withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
				record, err := repo.Create(t.Context(), repository.NewTransaction(100, -40, models.TxKindGiftSent, repository.WithTTL(time.Hour)))
				require.NoError(t, err)

				_, err = repo.UpdateStatus(t.Context(), record.ID, models.TxStatusRejected)
				require.NoError(t, err)

				// Second resolution must lose
				_, err = repo.UpdateStatus(t.Context(), record.ID, models.TxStatusExpired)

				require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
			})
		})

		t.Run("back to pending forbidden", func(t *testing.T) {
			withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
				record, err := repo.Create(t.Context(), repository.NewTransaction(100, -40, models.TxKindGiftSent, repository.WithTTL(time.Hour)))
				require.NoError(t, err)

				_, err = repo.UpdateStatus(t.Context(), record.ID, models.TxStatusPending)

				require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
			})
		})

		t.Run("missing transaction", func(t *testing.T) {
			withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
				_, err := repo.UpdateStatus(t.Context(), uuid.New(), models.TxStatusCompleted)

				require.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
			})
		})
	})

	t.Run("ListExpired", func(t *testing.T) {
		withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
			// One already overdue, one still alive, one resolved overdue
			overdue, err := repo.Create(t.Context(), repository.NewTransaction(100, -10, models.TxKindGiftSent, repository.WithTTL(-time.Minute)))
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), repository.NewTransaction(100, -20, models.TxKindGiftSent, repository.WithTTL(time.Hour)))
			require.NoError(t, err)
			resolved, err := repo.Create(t.Context(), repository.NewTransaction(100, -30, models.TxKindGiftSent, repository.WithTTL(-time.Minute)))
			require.NoError(t, err)
			_, err = repo.UpdateStatus(t.Context(), resolved.ID, models.TxStatusCompleted)
			require.NoError(t, err)

			expired, err := repo.ListExpired(t.Context(), time.Now(), 100)

			require.NoError(t, err)
			require.Len(t, expired, 1)
			require.Equal(t, overdue.ID, expired[0].ID)
		})
	})

	t.Run("List", func(t *testing.T) {
		withRepos(t, pg.Pool, func(_ *AccountRepo, repo *TransactionRepo) {
			_, err := repo.Create(t.Context(), repository.NewTransaction(100, 10, models.TxKindCheckin))
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), repository.NewTransaction(100, 20, models.TxKindStreakBonus))
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), repository.NewTransaction(200, 10, models.TxKindCheckin))
			require.NoError(t, err)

			accountID := int64(100)
			transactions, err := repo.List(t.Context(), repository.ListTransactionsOpts{AccountID: &accountID})
			require.NoError(t, err)
			require.Len(t, transactions, 2)

			transactions, err = repo.List(t.Context(), repository.ListTransactionsOpts{
				AccountID: &accountID,
				Kinds:     []string{models.TxKindStreakBonus},
			})
			require.NoError(t, err)
			require.Len(t, transactions, 1)
			require.Equal(t, int64(20), transactions[0].Amount)
		})
	})
}
