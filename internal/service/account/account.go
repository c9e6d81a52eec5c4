package account

import (
	"context"
	"fmt"

	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

const defaultHistoryLimit = 50

type AccountService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *AccountService {
	return &AccountService{
		storage: storage,
	}
}

// EnsureAccount returns the account, creating a zero-balance one on
// first touch.
func (s *AccountService) EnsureAccount(ctx context.Context, userID int64, username string) (models.Account, error) {
	return s.storage.Account().GetOrCreateAccount(ctx, userID, username)
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (models.Account, error) {
	return s.storage.Account().GetAccount(ctx, userID)
}

// ListTransactions returns the account's ledger history, newest first
func (s *AccountService) ListTransactions(ctx context.Context, userID int64, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	if _, err := s.storage.Account().GetAccount(ctx, userID); err != nil {
		return nil, err
	}

	opts.AccountID = &userID
	if opts.Limit == 0 {
		opts.Limit = defaultHistoryLimit
	}

	return s.storage.Transaction().List(ctx, opts)
}

// Adjust applies a signed manual correction to the available balance and
// records it in the ledger. Negative amounts may not drive the balance
// below zero.
func (s *AccountService) Adjust(ctx context.Context, userID int64, amount int64, reason string) (models.Account, error) {
	var account models.Account

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		account, err = storage.Account().AdjustBalance(ctx, userID, amount, 0)
		if err != nil {
			return err
		}

		_, err = storage.Transaction().Create(ctx, repository.NewTransaction(
			userID, amount, models.TxKindAdminAdjustment,
			repository.WithDescription(reason),
		))
		if err != nil {
			return fmt.Errorf("record adjustment: %w", err)
		}

		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	return account, nil
}
