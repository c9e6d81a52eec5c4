// Package gift implements the points gift escrow.
//
// Proposing a gift moves the amount from the sender's available balance
// into the frozen part and records a PENDING transaction. The pending
// record then resolves exactly once: accepted by the receiver, rejected
// by the receiver, cancelled by the sender or expired by the watchdog.
package gift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/notify"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

const (
	defaultMinAmount = 1
	defaultMaxAmount = 100_000
	defaultTTL       = 24 * time.Hour
)

type Config struct {
	MinAmount int64
	MaxAmount int64
	TTL       time.Duration
}

type GiftService struct {
	cfg      Config
	storage  repository.Storage
	notifier notify.Notifier
}

func NewService(storage repository.Storage, notifier notify.Notifier, cfg Config) *GiftService {
	if cfg.MinAmount == 0 {
		cfg.MinAmount = defaultMinAmount
	}
	if cfg.MaxAmount == 0 {
		cfg.MaxAmount = defaultMaxAmount
	}
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}

	return &GiftService{
		cfg:      cfg,
		storage:  storage,
		notifier: notifier,
	}
}

// Propose freezes the amount on the sender's balance and opens a pending
// gift to the receiver. Both accounts are created on first touch: gifting
// to a member who never checked in is a normal flow.
func (s *GiftService) Propose(ctx context.Context, senderID int64, receiverID int64, amount int64, description string) (models.Transaction, error) {
	var gift models.Transaction

	if amount < s.cfg.MinAmount || amount > s.cfg.MaxAmount {
		return gift, apperrors.ErrGiftAmountOutOfBounds
	}
	if senderID == receiverID {
		return gift, apperrors.ErrGiftToSelf
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		if _, err := storage.Account().GetOrCreateAccount(ctx, senderID, ""); err != nil {
			return err
		}
		if _, err := storage.Account().GetOrCreateAccount(ctx, receiverID, ""); err != nil {
			return err
		}

		// Moves available -> frozen, fails on insufficient funds
		if _, err := storage.Account().AdjustBalance(ctx, senderID, -amount, amount); err != nil {
			return fmt.Errorf("freeze gift amount: %w", err)
		}

		created, err := storage.Transaction().Create(ctx, repository.NewTransaction(
			senderID, -amount, models.TxKindGiftSent,
			repository.WithCounterparty(receiverID),
			repository.WithDescription(description),
			repository.WithTTL(s.cfg.TTL),
		))
		if err != nil {
			return fmt.Errorf("record gift: %w", err)
		}

		gift = created
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	// Notify after commit only: an uncommitted gift must never be announced
	s.notifier.Notify(ctx, receiverID, notify.EventGiftProposed, giftPayload(gift))

	return gift, nil
}

// Accept settles the pending gift: the frozen amount leaves the sender
// and lands on the receiver's available balance. Only the receiver may
// accept.
func (s *GiftService) Accept(ctx context.Context, giftID uuid.UUID, actorID int64) (models.Transaction, error) {
	gift, err := s.resolve(ctx, giftID, models.TxStatusCompleted, func(gift models.Transaction) error {
		if gift.CounterpartyID == nil || *gift.CounterpartyID != actorID {
			return apperrors.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.notifier.Notify(ctx, gift.AccountID, notify.EventGiftAccepted, giftPayload(gift))
	return gift, nil
}

// Reject returns the pending gift to the sender. Only the receiver may
// reject.
func (s *GiftService) Reject(ctx context.Context, giftID uuid.UUID, actorID int64) (models.Transaction, error) {
	gift, err := s.resolve(ctx, giftID, models.TxStatusRejected, func(gift models.Transaction) error {
		if gift.CounterpartyID == nil || *gift.CounterpartyID != actorID {
			return apperrors.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.notifier.Notify(ctx, gift.AccountID, notify.EventGiftRejected, giftPayload(gift))
	return gift, nil
}

// Cancel withdraws the pending gift. Only the sender may cancel.
func (s *GiftService) Cancel(ctx context.Context, giftID uuid.UUID, actorID int64) (models.Transaction, error) {
	gift, err := s.resolve(ctx, giftID, models.TxStatusCancelled, func(gift models.Transaction) error {
		if gift.AccountID != actorID {
			return apperrors.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if gift.CounterpartyID != nil {
		s.notifier.Notify(ctx, *gift.CounterpartyID, notify.EventGiftCanceled, giftPayload(gift))
	}
	return gift, nil
}

// Expire resolves an overdue gift on behalf of the watchdog. Losing the
// race to a concurrent accept is normal and reported as
// apperrors.ErrInvalidStateTransition.
func (s *GiftService) Expire(ctx context.Context, giftID uuid.UUID) (models.Transaction, error) {
	gift, err := s.resolve(ctx, giftID, models.TxStatusExpired, nil)
	if err != nil {
		return models.Transaction{}, err
	}

	s.notifier.Notify(ctx, gift.AccountID, notify.EventGiftExpired, giftPayload(gift))
	return gift, nil
}

// resolve performs the single PENDING -> terminal transition and the
// matching balance moves as one db transaction.
//
// UpdateStatus goes first: its conditional update is the linearization
// point, so of any number of concurrent resolvers exactly one reaches
// the balance adjustments.
func (s *GiftService) resolve(ctx context.Context, giftID uuid.UUID, newStatus string, authorize func(models.Transaction) error) (models.Transaction, error) {
	var resolved models.Transaction

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		gift, err := storage.Transaction().GetByID(ctx, giftID)
		if err != nil {
			return err
		}
		if gift.Kind != models.TxKindGiftSent {
			return apperrors.ErrTransactionNotFound
		}
		if authorize != nil {
			if err := authorize(gift); err != nil {
				return err
			}
		}

		// Expiring before the deadline is never legal, no matter who asks
		if newStatus == models.TxStatusExpired {
			if gift.ExpiresAt == nil || time.Now().Before(*gift.ExpiresAt) {
				return apperrors.ErrGiftNotExpired
			}
		}

		gift, err = storage.Transaction().UpdateStatus(ctx, giftID, newStatus)
		if err != nil {
			return err
		}

		amount := -gift.Amount // gift amount is recorded as a debit

		switch newStatus {
		case models.TxStatusCompleted:
			senderID, receiverID := gift.AccountID, *gift.CounterpartyID

			release := func() error {
				_, err := storage.Account().AdjustBalance(ctx, senderID, 0, -amount)
				if err != nil {
					return fmt.Errorf("release frozen amount: %w", err)
				}
				return nil
			}
			credit := func() error {
				_, err := storage.Account().AdjustBalance(ctx, receiverID, amount, 0)
				if err != nil {
					return fmt.Errorf("credit receiver: %w", err)
				}
				return nil
			}

			// Lock the two account rows in ascending id order: crossing
			// accepts otherwise lock them in opposite order and deadlock
			moves := []func() error{release, credit}
			if receiverID < senderID {
				moves = []func() error{credit, release}
			}
			for _, move := range moves {
				if err := move(); err != nil {
					return err
				}
			}

			_, err = storage.Transaction().Create(ctx, repository.NewTransaction(
				receiverID, amount, models.TxKindGiftReceived,
				repository.WithCounterparty(senderID),
				repository.WithDescription(gift.Description),
			))
			if err != nil {
				return fmt.Errorf("record received gift: %w", err)
			}

		default:
			// Rejected, cancelled and expired all return the frozen
			// amount to the sender
			if _, err := storage.Account().AdjustBalance(ctx, gift.AccountID, amount, -amount); err != nil {
				return fmt.Errorf("unfreeze gift amount: %w", err)
			}
		}

		resolved = gift
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	return resolved, nil
}

func giftPayload(gift models.Transaction) map[string]any {
	payload := map[string]any{
		"gift_id": gift.ID.String(),
		"amount":  -gift.Amount,
		"sender":  gift.AccountID,
	}
	if gift.CounterpartyID != nil {
		payload["receiver"] = *gift.CounterpartyID
	}
	return payload
}
