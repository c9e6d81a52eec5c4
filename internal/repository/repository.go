package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/models"
)

// Account ordering for leaderboard projections
const (
	OrderByPoints          = "points"
	OrderByStreak          = "streak"
	OrderByMonthlyCheckins = "monthly"
)

// CheckinStats is the account counters snapshot written on every check-in
type CheckinStats struct {
	StreakDays      int
	MaxStreakDays   int
	TotalCheckins   int
	MonthlyCheckins int
	LastCheckinDate time.Time
}

type ListAccountsOpts struct {
	OrderBy string // one of OrderBy* constants, defaults to OrderByPoints
	Limit   int
}

type ListTransactionsOpts struct {
	AccountID *int64
	Kinds     []string
	Statuses  []string
	Limit     int
}

// Account repository interface
// The ledger store: balances are mutated only through AdjustBalance
type AccountRepo interface {
	// Return account or apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, userID int64) (models.Account, error)

	// Return existing account or create zero-balance one
	GetOrCreateAccount(ctx context.Context, userID int64, username string) (models.Account, error)

	// Apply deltas to the available and frozen parts of the balance.
	// The only balance mutation primitive. Driving any part negative
	// must fail with apperrors.ErrInsufficientFunds and change nothing.
	AdjustBalance(ctx context.Context, userID int64, availableDelta int64, frozenDelta int64) (models.Account, error)

	// Overwrite check-in counters of the account
	UpdateCheckinStats(ctx context.Context, userID int64, stats CheckinStats) (models.Account, error)

	// Bind email to the account.
	// Must return apperrors.ErrEmailTaken if another account holds the email.
	SetEmail(ctx context.Context, userID int64, email string, verified bool) (models.Account, error)

	// Read-only ranked projection, safe to call concurrently with mutations
	ListAccounts(ctx context.Context, opts ListAccountsOpts) ([]models.Account, error)
}

// Transaction repository interface: append-only log plus the single
// allowed status transition PENDING -> terminal
type TransactionRepo interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)

	// Return transaction or apperrors.ErrTransactionNotFound
	GetByID(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	List(ctx context.Context, opts ListTransactionsOpts) ([]models.Transaction, error)

	// Transition PENDING -> newStatus.
	// This is the linearization point for racing resolvers: exactly one
	// caller wins, the others get apperrors.ErrInvalidStateTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (models.Transaction, error)

	// List PENDING transactions with expires_at before now.
	// Used by the expiry watchdog, including recovery after restart.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error)
}

// Checkin repository interface
type CheckinRepo interface {
	// Must return apperrors.ErrAlreadyCheckedIn when a record
	// for (account, date) already exists
	Create(ctx context.Context, record models.CheckinRecord) error
}

// Email verification repository interface
type EmailRepo interface {
	CreateVerification(ctx context.Context, v models.EmailVerification) (models.EmailVerification, error)

	// Return the latest PENDING verification for the account
	// or apperrors.ErrVerificationNotFound
	GetPending(ctx context.Context, accountID int64) (models.EmailVerification, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Storage aggregates repositories and provides transactional execution
type Storage interface {
	Account() AccountRepo
	Transaction() TransactionRepo
	Checkin() CheckinRepo
	Email() EmailRepo

	// Run fn within db transaction.
	// The storage passed to fn operates on the transaction, so every
	// repository call inside fn commits or rolls back as one unit.
	InTx(ctx context.Context, fn func(Storage) error) error
}
