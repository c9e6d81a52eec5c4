package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/auth"
	"github.com/nkiryanov/pointsbot/internal/handlers/middleware"
	"github.com/nkiryanov/pointsbot/internal/logger"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
	"github.com/nkiryanov/pointsbot/internal/service/checkin"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	tokens *auth.TokenManager,
	accountService accountService,
	checkinService checkinService,
	giftService giftService,
	leaderboardService leaderboardService,
	emailService emailService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(tokens)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return authMiddleware(middleware.AdminOnly()(h))
	}

	api := http.NewServeMux()

	api.Handle("POST /checkin", withAuth(handleCheckin(checkinService, logger)))

	api.Handle("GET /accounts/{id}", withAuth(handleGetAccount(accountService, logger)))
	api.Handle("GET /accounts/{id}/transactions", withAuth(handleListTransactions(accountService, logger)))

	api.Handle("POST /gifts", withAuth(handleProposeGift(giftService, logger)))
	api.Handle("POST /gifts/{id}/accept", withAuth(handleAcceptGift(giftService, logger)))
	api.Handle("POST /gifts/{id}/reject", withAuth(handleRejectGift(giftService, logger)))
	api.Handle("POST /gifts/{id}/cancel", withAuth(handleCancelGift(giftService, logger)))

	api.Handle("GET /leaderboard", withAuth(handleLeaderboard(leaderboardService, logger)))

	api.Handle("POST /email/bind", withAuth(handleEmailBind(emailService, logger)))
	api.Handle("POST /email/verify", withAuth(handleEmailVerify(emailService, logger)))

	api.Handle("POST /admin/adjust", withAdmin(handleAdminAdjust(accountService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type accountService interface {
	// Has to return apperrors.ErrAccountNotFound for unknown accounts
	GetAccount(ctx context.Context, userID int64) (models.Account, error)

	// List the account's ledger history, newest first
	ListTransactions(ctx context.Context, userID int64, opts repository.ListTransactionsOpts) ([]models.Transaction, error)

	// Apply a signed manual balance correction
	Adjust(ctx context.Context, userID int64, amount int64, reason string) (models.Account, error)
}

type checkinService interface {
	// Register a daily check-in and credit the reward
	// Has to return apperrors.ErrAlreadyCheckedIn on the second call a day
	CheckIn(ctx context.Context, userID int64, username string, now time.Time) (checkin.Result, error)
}

type giftService interface {
	Propose(ctx context.Context, senderID int64, receiverID int64, amount int64, description string) (models.Transaction, error)
	Accept(ctx context.Context, giftID uuid.UUID, actorID int64) (models.Transaction, error)
	Reject(ctx context.Context, giftID uuid.UUID, actorID int64) (models.Transaction, error)
	Cancel(ctx context.Context, giftID uuid.UUID, actorID int64) (models.Transaction, error)
}

type leaderboardService interface {
	Top(ctx context.Context, ranking string, limit int) ([]models.Account, error)
}

type emailService interface {
	Bind(ctx context.Context, userID int64, email string) (models.EmailVerification, error)
	Verify(ctx context.Context, userID int64, code string) (models.Account, error)
}
