package repository

import (
	"context"
	"time"

	"copytrade-subscription/internal/domain/model"
)

// PaymentFilter narrows List results. Zero values mean "any".
type PaymentFilter struct {
	UserID  string
	Renewal *bool
	Status  model.Status
	Limit   int
}

// PaymentRepository persists payment intents. Every status-changing method
// that returns (bool, error) performs a conditional update guarded by the
// current status and reports whether a row actually changed; callers turn a
// false result into a conflict. This is the check-and-set that closes the
// race between concurrent admin actions on the same intent.
type PaymentRepository interface {
	Save(ctx context.Context, qx Tx, p *model.PaymentIntent) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.PaymentIntent, error)
	List(ctx context.Context, qx Tx, f PaymentFilter) ([]*model.PaymentIntent, error)

	// AttachProofIfPending moves pending -> in_process and records the
	// external transaction reference and proof URL.
	AttachProofIfPending(ctx context.Context, qx Tx, id, externalTxID, proofURL string) (bool, error)

	// MarkFailedIfOpen settles a still-open intent as rejected with a client
	// failure code (EXPIRED / CANCELLED).
	MarkFailedIfOpen(ctx context.Context, qx Tx, id string, code model.FailureCode) (bool, error)

	// MarkApproved flips a non-terminal intent to succeeded, stamping
	// approved_at and verified_by.
	MarkApproved(ctx context.Context, qx Tx, id string, approvedAt time.Time, adminID string) (bool, error)

	// MarkRejected flips a non-terminal intent to rejected with a reason.
	MarkRejected(ctx context.Context, qx Tx, id, reason, adminID string) (bool, error)

	// SetOutcomeIfOpen moves a non-terminal intent between the two
	// non-terminal positions (admin bulk status edits).
	SetOutcomeIfOpen(ctx context.Context, qx Tx, id string, kind model.OutcomeKind) (bool, error)

	// SetAdminMessage attaches an out-of-band clarification note. Allowed in
	// any state; does not touch the status.
	SetAdminMessage(ctx context.Context, qx Tx, id, text string) error

	// ListPendingOlderThan returns still-pending intents created before the
	// cutoff, oldest first. Used by the checkout expiry sweep. Intents with a
	// proof attached (in_process) wait for admin verification with no time
	// bound and are never returned here.
	ListPendingOlderThan(ctx context.Context, qx Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error)

	// ListRenewalsExpiring returns approved intents whose derived expiry
	// falls inside [from, to) and that have not been reminded yet.
	ListRenewalsExpiring(ctx context.Context, qx Tx, from, to time.Time, limit int) ([]*model.PaymentIntent, error)

	// MarkReminderSent records that a renewal reminder went out.
	MarkReminderSent(ctx context.Context, qx Tx, id string, at time.Time) error
}
