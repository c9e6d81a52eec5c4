// Package email binds an email address to an account through a short
// lived verification code and pays the one-time verification bonus.
package email

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/notify"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

const (
	defaultCodeTTL         = 5 * time.Minute
	defaultBonus           = 50
	defaultMinPointsToBind = 5

	codeDigits = 6
)

type Config struct {
	CodeTTL time.Duration
	Bonus   int64 // paid once, on the first verified email

	// Binding is open to members who earned at least this many points,
	// keeps throwaway accounts from farming the bonus
	MinPointsToBind int64
}

type EmailService struct {
	cfg     Config
	storage repository.Storage
	mailer  notify.Mailer
}

func NewService(storage repository.Storage, mailer notify.Mailer, cfg Config) *EmailService {
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = defaultCodeTTL
	}
	if cfg.Bonus == 0 {
		cfg.Bonus = defaultBonus
	}
	if cfg.MinPointsToBind == 0 {
		cfg.MinPointsToBind = defaultMinPointsToBind
	}

	return &EmailService{
		cfg:     cfg,
		storage: storage,
		mailer:  mailer,
	}
}

// Bind issues a verification code for the email and sends it out.
// A new Bind supersedes any previous pending code of the account.
func (s *EmailService) Bind(ctx context.Context, userID int64, email string) (models.EmailVerification, error) {
	var verification models.EmailVerification

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		account, err := storage.Account().GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if account.Available < s.cfg.MinPointsToBind {
			return apperrors.ErrNotEnoughPointsToBind
		}

		// Drop the previous pending code if there is one
		pending, err := storage.Email().GetPending(ctx, userID)
		switch {
		case err == nil:
			if err := storage.Email().UpdateStatus(ctx, pending.ID, models.EmailVerifyExpired); err != nil {
				return fmt.Errorf("supersede pending verification: %w", err)
			}
		case errors.Is(err, apperrors.ErrVerificationNotFound):
		default:
			return err
		}

		code, err := generateCode()
		if err != nil {
			return fmt.Errorf("generate verification code: %w", err)
		}

		now := time.Now()
		verification, err = storage.Email().CreateVerification(ctx, models.EmailVerification{
			ID:        uuid.New(),
			AccountID: userID,
			Email:     email,
			Code:      code,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.CodeTTL),
			Status:    models.EmailVerifyPending,
		})
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return models.EmailVerification{}, err
	}

	if err := s.mailer.SendVerificationCode(ctx, verification.Email, verification.Code); err != nil {
		return models.EmailVerification{}, fmt.Errorf("send verification code: %w", err)
	}

	return verification, nil
}

// Verify checks the code, binds the email to the account and pays the
// bonus if this is the first email the account ever verified.
func (s *EmailService) Verify(ctx context.Context, userID int64, code string) (models.Account, error) {
	var account models.Account

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		verification, err := storage.Email().GetPending(ctx, userID)
		if err != nil {
			return err
		}

		if time.Now().After(verification.ExpiresAt) {
			if err := storage.Email().UpdateStatus(ctx, verification.ID, models.EmailVerifyExpired); err != nil {
				return fmt.Errorf("expire verification: %w", err)
			}
			return apperrors.ErrVerificationExpired
		}

		if verification.Code != code {
			return apperrors.ErrVerificationCodeMismatch
		}

		if err := storage.Email().UpdateStatus(ctx, verification.ID, models.EmailVerifyVerified); err != nil {
			return fmt.Errorf("mark verification done: %w", err)
		}

		account, err = storage.Account().SetEmail(ctx, userID, verification.Email, true)
		if err != nil {
			return err
		}

		// The bonus is paid once per account, re-binding another email
		// later earns nothing
		paid, err := storage.Transaction().List(ctx, repository.ListTransactionsOpts{
			AccountID: &userID,
			Kinds:     []string{models.TxKindEmailBonus},
			Limit:     1,
		})
		if err != nil {
			return err
		}
		if len(paid) > 0 {
			return nil
		}

		_, err = storage.Transaction().Create(ctx, repository.NewTransaction(
			userID, s.cfg.Bonus, models.TxKindEmailBonus,
			repository.WithDescription("email verification bonus"),
		))
		if err != nil {
			return fmt.Errorf("record email bonus: %w", err)
		}

		account, err = storage.Account().AdjustBalance(ctx, userID, s.cfg.Bonus, 0)
		if err != nil {
			return fmt.Errorf("credit email bonus: %w", err)
		}

		return nil
	})
	if err != nil {
		return models.Account{}, err
	}

	return account, nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
