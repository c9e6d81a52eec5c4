package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EmailVerifyPending  = "PENDING"
	EmailVerifyVerified = "VERIFIED"
	EmailVerifyExpired  = "EXPIRED"
)

type EmailVerification struct {
	ID        uuid.UUID
	AccountID int64
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Status    string
}
