// Package notify is the boundary to the out of scope chat transport.
// The ledger only hands events over: delivery failures never roll back
// committed ledger mutations.
package notify

import (
	"context"

	"github.com/nkiryanov/pointsbot/internal/logger"
)

// Gift lifecycle events
const (
	EventGiftProposed = "gift_proposed"
	EventGiftAccepted = "gift_accepted"
	EventGiftRejected = "gift_rejected"
	EventGiftExpired  = "gift_expired"
	EventGiftCanceled = "gift_canceled"
)

type Notifier interface {
	// Fire-and-forget: implementations must not block the caller for long
	// and must swallow delivery errors themselves
	Notify(ctx context.Context, recipientID int64, event string, payload map[string]any)
}

type Mailer interface {
	SendVerificationCode(ctx context.Context, email string, code string) error
}

// LogNotifier writes events to the log.
// Used in tests and until the transport side is plugged in.
type LogNotifier struct {
	Logger logger.Logger
}

func (n *LogNotifier) Notify(_ context.Context, recipientID int64, event string, payload map[string]any) {
	n.Logger.Info("notify", "recipient", recipientID, "event", event, "payload", payload)
}

// LogMailer logs the code instead of delivering it
type LogMailer struct {
	Logger logger.Logger
}

func (m *LogMailer) SendVerificationCode(_ context.Context, email string, code string) error {
	m.Logger.Info("verification code issued", "email", email, "code", code)
	return nil
}
