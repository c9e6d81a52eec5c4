package checkin

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
	"github.com/nkiryanov/pointsbot/internal/repository/postgres"
	"github.com/nkiryanov/pointsbot/internal/testutil"
)

func TestCheckin(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	day := func(n int) time.Time {
		return time.Date(2025, time.March, n, 12, 30, 0, 0, time.UTC)
	}

	// Helper to create CheckinService within transaction
	inTx := func(t *testing.T, fn func(s *CheckinService, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := NewService(storage, Config{})
			fn(service, storage)
		})
	}

	t.Run("first checkin", func(t *testing.T) {
		inTx(t, func(s *CheckinService, storage repository.Storage) {
			result, err := s.CheckIn(t.Context(), 100, "alice", day(1))

			require.NoError(t, err)
			require.Equal(t, int64(10), result.BasePoints)
			require.Equal(t, int64(0), result.BonusPoints, "no bonus on streak day 1")
			require.Equal(t, 1, result.StreakDays)
			require.Equal(t, int64(10), result.Account.Available)
			require.Equal(t, 1, result.Account.TotalCheckins)
			require.Equal(t, 1, result.Account.MonthlyCheckins)

			txs, err := storage.Transaction().List(t.Context(), repository.ListTransactionsOpts{
				AccountID: ptr(int64(100)),
			})
			require.NoError(t, err)
			require.Len(t, txs, 1)
			require.Equal(t, models.TxKindCheckin, txs[0].Kind)
			require.Equal(t, models.TxStatusCompleted, txs[0].Status)
			require.Equal(t, int64(10), txs[0].Amount)
		})
	})

	t.Run("same day twice fails", func(t *testing.T) {
		inTx(t, func(s *CheckinService, _ repository.Storage) {
			_, err := s.CheckIn(t.Context(), 100, "alice", day(1))
			require.NoError(t, err)

			_, err = s.CheckIn(t.Context(), 100, "alice", day(1).Add(5*time.Hour))

			require.ErrorIs(t, err, apperrors.ErrAlreadyCheckedIn)

			account, err := s.storage.Account().GetAccount(t.Context(), 100)
			require.NoError(t, err)
			require.Equal(t, int64(10), account.Available, "balance should not change on repeated check-in")
		})
	})

	t.Run("consecutive days extend streak", func(t *testing.T) {
		inTx(t, func(s *CheckinService, _ repository.Storage) {
			for d := 1; d <= 3; d++ {
				result, err := s.CheckIn(t.Context(), 100, "alice", day(d))
				require.NoError(t, err)
				require.Equal(t, d, result.StreakDays)
			}
		})
	})

	t.Run("missed day resets streak", func(t *testing.T) {
		inTx(t, func(s *CheckinService, _ repository.Storage) {
			_, err := s.CheckIn(t.Context(), 100, "alice", day(1))
			require.NoError(t, err)
			_, err = s.CheckIn(t.Context(), 100, "alice", day(2))
			require.NoError(t, err)

			result, err := s.CheckIn(t.Context(), 100, "alice", day(4))

			require.NoError(t, err)
			require.Equal(t, 1, result.StreakDays, "gap should reset the streak")
			require.Equal(t, 2, result.Account.MaxStreakDays, "max streak should survive the reset")
			require.Equal(t, 3, result.Account.TotalCheckins)
		})
	})

	t.Run("weekly bonus on day 7", func(t *testing.T) {
		inTx(t, func(s *CheckinService, storage repository.Storage) {
			var result Result
			var err error
			for d := 1; d <= 7; d++ {
				result, err = s.CheckIn(t.Context(), 100, "alice", day(d))
				require.NoError(t, err)
			}

			require.Equal(t, int64(20), result.BonusPoints)
			// 7 days * 10 base + 20 bonus
			require.Equal(t, int64(90), result.Account.Available)

			txs, err := storage.Transaction().List(t.Context(), repository.ListTransactionsOpts{
				AccountID: ptr(int64(100)),
				Kinds:     []string{models.TxKindStreakBonus},
			})
			require.NoError(t, err)
			require.Len(t, txs, 1)
			require.Equal(t, int64(20), txs[0].Amount)
		})
	})

	t.Run("monthly bonus wins over weekly", func(t *testing.T) {
		inTx(t, func(s *CheckinService, _ repository.Storage) {
			// Streak 30 is wired via pre-seeded stats, running 30 real
			// check-ins here just repeats the loop above
			yesterday := day(9).AddDate(0, 0, -1)
			_, err := s.storage.Account().GetOrCreateAccount(t.Context(), 100, "alice")
			require.NoError(t, err)
			_, err = s.storage.Account().UpdateCheckinStats(t.Context(), 100, repository.CheckinStats{
				StreakDays:      29,
				MaxStreakDays:   29,
				TotalCheckins:   29,
				MonthlyCheckins: 8,
				LastCheckinDate: yesterday,
			})
			require.NoError(t, err)

			result, err := s.CheckIn(t.Context(), 100, "alice", day(9))

			require.NoError(t, err)
			require.Equal(t, 30, result.StreakDays)
			require.Equal(t, int64(100), result.BonusPoints, "day 30 pays the monthly bonus, not 20+100")
		})
	})

	t.Run("monthly counter resets on month change", func(t *testing.T) {
		inTx(t, func(s *CheckinService, _ repository.Storage) {
			_, err := s.CheckIn(t.Context(), 100, "alice", time.Date(2025, time.March, 31, 10, 0, 0, 0, time.UTC))
			require.NoError(t, err)

			result, err := s.CheckIn(t.Context(), 100, "alice", time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC))

			require.NoError(t, err)
			require.Equal(t, 2, result.StreakDays, "streak crosses month boundary")
			require.Equal(t, 1, result.Account.MonthlyCheckins, "monthly counter starts over in April")
		})
	})
}

func ptr[T any](v T) *T { return &v }
