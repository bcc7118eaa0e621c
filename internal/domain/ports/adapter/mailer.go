package adapter

import (
	"context"
	"time"
)

// Mailer delivers user notifications. All sends are fire-and-forget from the
// payment state machine's point of view: failures are logged by callers and
// never affect intent status.
type Mailer interface {
	SendPaymentCompleted(ctx context.Context, to, strategyName string, amount float64) error
	SendPaymentRejected(ctx context.Context, to, strategyName, reason string) error
	SendRenewalReminder(ctx context.Context, to, strategyName string, expiresAt time.Time) error
}
