package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TxKindCheckin         = "CHECKIN"
	TxKindStreakBonus     = "STREAK_BONUS"
	TxKindGiftSent        = "GIFT_SENT"
	TxKindGiftReceived    = "GIFT_RECEIVED"
	TxKindAdminAdjustment = "ADMIN_ADJUSTMENT"
	TxKindEmailBonus      = "EMAIL_BONUS"
)

const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusRejected  = "REJECTED"
	TxStatusExpired   = "EXPIRED"
	TxStatusCancelled = "CANCELLED"
)

// Transaction is an immutable append-only record of one balance affecting
// event. Amount is signed: positive credits the account, negative debits it.
// Only status may change after creation and only PENDING -> terminal.
type Transaction struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	AccountID      int64
	CounterpartyID *int64
	Amount         int64
	Kind           string
	Status         string
	Description    string
	ExpiresAt      *time.Time
}

// Terminal reports whether the status never changes again.
func (t *Transaction) Terminal() bool {
	return t.Status != TxStatusPending
}
