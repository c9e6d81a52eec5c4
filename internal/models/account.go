package models

import (
	"time"
)

// Account is one per chat platform user, created on first interaction.
// Points are integral: Available is spendable, Frozen is reserved for
// pending outbound gifts and excluded from spend and rankings.
type Account struct {
	UserID    int64
	Username  string
	CreatedAt time.Time

	Available int64
	Frozen    int64

	StreakDays      int
	MaxStreakDays   int
	TotalCheckins   int
	MonthlyCheckins int
	LastCheckinDate *time.Time

	Email         *string
	EmailVerified bool
}
