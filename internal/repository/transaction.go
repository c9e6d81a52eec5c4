package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/models"
)

type TxOption func(*models.Transaction)

func WithCounterparty(accountID int64) TxOption {
	return func(t *models.Transaction) {
		t.CounterpartyID = &accountID
	}
}

func WithDescription(description string) TxOption {
	return func(t *models.Transaction) {
		t.Description = description
	}
}

func WithStatus(status string) TxOption {
	return func(t *models.Transaction) {
		t.Status = status
	}
}

// WithTTL marks the transaction PENDING and sets its deadline
func WithTTL(ttl time.Duration) TxOption {
	return func(t *models.Transaction) {
		expiresAt := t.CreatedAt.Add(ttl)
		t.Status = models.TxStatusPending
		t.ExpiresAt = &expiresAt
	}
}

// NewTransaction builds a well-formed transaction record: assigns ID,
// fills created_at and defaults status to COMPLETED. Keeps record
// construction consistent across callers, holds no decision logic.
func NewTransaction(accountID int64, amount int64, kind string, opts ...TxOption) models.Transaction {
	t := models.Transaction{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		AccountID: accountID,
		Amount:    amount,
		Kind:      kind,
		Status:    models.TxStatusCompleted,
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}
