package leaderboard

import (
	"context"

	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Rankings the leaderboard may be ordered by
const (
	ByPoints          = repository.OrderByPoints
	ByStreak          = repository.OrderByStreak
	ByMonthlyCheckins = repository.OrderByMonthlyCheckins
)

type LeaderboardService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *LeaderboardService {
	return &LeaderboardService{
		storage: storage,
	}
}

// Top returns accounts ranked by the requested metric. Frozen points do
// not count toward the points ranking. Unknown rankings fall back to
// points.
func (s *LeaderboardService) Top(ctx context.Context, ranking string, limit int) ([]models.Account, error) {
	switch ranking {
	case ByStreak, ByMonthlyCheckins:
	default:
		ranking = ByPoints
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return s.storage.Account().ListAccounts(ctx, repository.ListAccountsOpts{
		OrderBy: ranking,
		Limit:   limit,
	})
}
