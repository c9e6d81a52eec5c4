package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/pointsbot/internal/auth"
	"github.com/nkiryanov/pointsbot/internal/handlers"
	"github.com/nkiryanov/pointsbot/internal/logger"
	"github.com/nkiryanov/pointsbot/internal/notify"
	"github.com/nkiryanov/pointsbot/internal/repository"
	"github.com/nkiryanov/pointsbot/internal/repository/postgres"
	"github.com/nkiryanov/pointsbot/internal/service/account"
	"github.com/nkiryanov/pointsbot/internal/service/checkin"
	"github.com/nkiryanov/pointsbot/internal/service/email"
	"github.com/nkiryanov/pointsbot/internal/service/gift"
	"github.com/nkiryanov/pointsbot/internal/service/leaderboard"
	"github.com/nkiryanov/pointsbot/internal/testutil"
)

type Services struct {
	Storage     repository.Storage
	Tokens      *auth.TokenManager
	Account     *account.AccountService
	Checkin     *checkin.CheckinService
	Gift        *gift.GiftService
	Leaderboard *leaderboard.LeaderboardService
	Email       *email.EmailService
	Mailer      *MemoryMailer
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		log := logger.NewNoOpLogger()
		storage := postgres.NewStorage(tx)

		tokens := auth.NewTokenManager("test-secret")
		notifier := &notify.LogNotifier{Logger: log}
		mailer := &MemoryMailer{}

		services := Services{
			Storage:     storage,
			Tokens:      tokens,
			Account:     account.NewService(storage),
			Checkin:     checkin.NewService(storage, checkin.Config{}),
			Gift:        gift.NewService(storage, notifier, gift.Config{}),
			Leaderboard: leaderboard.NewService(storage),
			Email:       email.NewService(storage, mailer, email.Config{}),
			Mailer:      mailer,
		}

		router := handlers.NewRouter(
			tokens,
			services.Account,
			services.Checkin,
			services.Gift,
			services.Leaderboard,
			services.Email,
			log,
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, services)
	})
}
