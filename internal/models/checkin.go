package models

import (
	"time"
)

// CheckinRecord is one row per completed daily check-in.
// The (AccountID, Date) pair is unique in storage and serves as the
// idempotency key for concurrent check-in calls.
type CheckinRecord struct {
	AccountID   int64
	Date        time.Time
	BasePoints  int64
	BonusPoints int64
	CreatedAt   time.Time
}
