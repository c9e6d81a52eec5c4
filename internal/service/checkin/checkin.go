package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

const (
	defaultBasePoints   = 10
	defaultWeeklyBonus  = 20
	defaultMonthlyBonus = 100
)

type Config struct {
	BasePoints   int64
	WeeklyBonus  int64 // paid when the streak hits a multiple of 7
	MonthlyBonus int64 // paid when the streak hits a multiple of 30, wins over weekly
}

type CheckinService struct {
	cfg     Config
	storage repository.Storage
}

// Result of a completed check-in
type Result struct {
	Account     models.Account
	BasePoints  int64
	BonusPoints int64
	StreakDays  int
}

func NewService(storage repository.Storage, cfg Config) *CheckinService {
	if cfg.BasePoints == 0 {
		cfg.BasePoints = defaultBasePoints
	}
	if cfg.WeeklyBonus == 0 {
		cfg.WeeklyBonus = defaultWeeklyBonus
	}
	if cfg.MonthlyBonus == 0 {
		cfg.MonthlyBonus = defaultMonthlyBonus
	}

	return &CheckinService{
		cfg:     cfg,
		storage: storage,
	}
}

// CheckIn registers a daily check-in for the user and credits the reward.
// At most one check-in per calendar day: repeated calls return
// apperrors.ErrAlreadyCheckedIn and change nothing.
func (s *CheckinService) CheckIn(ctx context.Context, userID int64, username string, now time.Time) (Result, error) {
	var result Result
	today := midnightUTC(now)

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		account, err := storage.Account().GetOrCreateAccount(ctx, userID, username)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}

		if account.LastCheckinDate != nil && sameDay(*account.LastCheckinDate, today) {
			return apperrors.ErrAlreadyCheckedIn
		}

		stats := nextStats(account, today)
		bonus := s.streakBonus(stats.StreakDays)

		// Unique (account, date) key in storage backstops the date check
		// above when two calls race past it
		err = storage.Checkin().Create(ctx, models.CheckinRecord{
			AccountID:   userID,
			Date:        today,
			BasePoints:  s.cfg.BasePoints,
			BonusPoints: bonus,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}

		_, err = storage.Transaction().Create(ctx, repository.NewTransaction(
			userID, s.cfg.BasePoints, models.TxKindCheckin,
			repository.WithDescription(fmt.Sprintf("daily check-in, streak %d", stats.StreakDays)),
		))
		if err != nil {
			return fmt.Errorf("record check-in: %w", err)
		}

		if bonus > 0 {
			_, err = storage.Transaction().Create(ctx, repository.NewTransaction(
				userID, bonus, models.TxKindStreakBonus,
				repository.WithDescription(fmt.Sprintf("streak bonus for %d days", stats.StreakDays)),
			))
			if err != nil {
				return fmt.Errorf("record streak bonus: %w", err)
			}
		}

		account, err = storage.Account().AdjustBalance(ctx, userID, s.cfg.BasePoints+bonus, 0)
		if err != nil {
			return fmt.Errorf("credit check-in reward: %w", err)
		}

		account, err = storage.Account().UpdateCheckinStats(ctx, userID, stats)
		if err != nil {
			return fmt.Errorf("update check-in stats: %w", err)
		}

		result = Result{
			Account:     account,
			BasePoints:  s.cfg.BasePoints,
			BonusPoints: bonus,
			StreakDays:  stats.StreakDays,
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// streakBonus returns the extra points for reaching the streak length.
// Monthly milestone wins when a day is both weekly and monthly, the
// bonuses never stack.
func (s *CheckinService) streakBonus(streakDays int) int64 {
	switch {
	case streakDays%30 == 0:
		return s.cfg.MonthlyBonus
	case streakDays%7 == 0:
		return s.cfg.WeeklyBonus
	default:
		return 0
	}
}

func nextStats(account models.Account, today time.Time) repository.CheckinStats {
	streak := 1
	if account.LastCheckinDate != nil && sameDay(*account.LastCheckinDate, today.AddDate(0, 0, -1)) {
		streak = account.StreakDays + 1
	}

	maxStreak := account.MaxStreakDays
	if streak > maxStreak {
		maxStreak = streak
	}

	// Monthly counter resets when the calendar month changes
	monthly := 1
	if account.LastCheckinDate != nil && sameMonth(*account.LastCheckinDate, today) {
		monthly = account.MonthlyCheckins + 1
	}

	return repository.CheckinStats{
		StreakDays:      streak,
		MaxStreakDays:   maxStreak,
		TotalCheckins:   account.TotalCheckins + 1,
		MonthlyCheckins: monthly,
		LastCheckinDate: today,
	}
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
