package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/pointsbot/internal/auth"
	"github.com/nkiryanov/pointsbot/internal/db"
	"github.com/nkiryanov/pointsbot/internal/handlers"
	"github.com/nkiryanov/pointsbot/internal/logger"
	"github.com/nkiryanov/pointsbot/internal/notify"
	"github.com/nkiryanov/pointsbot/internal/repository/postgres"
	"github.com/nkiryanov/pointsbot/internal/service/account"
	"github.com/nkiryanov/pointsbot/internal/service/checkin"
	"github.com/nkiryanov/pointsbot/internal/service/email"
	"github.com/nkiryanov/pointsbot/internal/service/gift"
	"github.com/nkiryanov/pointsbot/internal/service/leaderboard"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	watchdog *gift.Watchdog
	logger   logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	if c.SecretKey == "" {
		return nil, errors.New("secret key is required, set SECRET_KEY or --secret-key")
	}

	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokens := auth.NewTokenManager(c.SecretKey)
	notifier := &notify.LogNotifier{Logger: logger}
	mailer := &notify.LogMailer{Logger: logger}

	accountService := account.NewService(storage)
	checkinService := checkin.NewService(storage, checkin.Config{})
	giftService := gift.NewService(storage, notifier, gift.Config{})
	leaderboardService := leaderboard.NewService(storage)
	emailService := email.NewService(storage, mailer, email.Config{})

	watchdog := gift.NewWatchdog(storage, giftService, logger)

	mux := handlers.NewRouter(
		tokens,
		accountService,
		checkinService,
		giftService,
		leaderboardService,
		emailService,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		watchdog:   watchdog,
		logger:     logger,
	}, nil
}

// Run starts http server and the gift expiry watchdog, closes both
// gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	watchdogStopped := s.watchdog.Run(srvCtx)

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-watchdogStopped

	return err
}
