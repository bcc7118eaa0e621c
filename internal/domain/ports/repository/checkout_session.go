package repository

import (
	"context"

	"copytrade-subscription/internal/domain/model"
)

// CheckoutSessionStore holds in-flight wizard sessions. Implementations keep
// a session slightly past its wall-clock expiry so the expiry path can settle
// the in-flight intent exactly once before dropping it.
type CheckoutSessionStore interface {
	Save(ctx context.Context, s *model.CheckoutSession) error
	Find(ctx context.Context, id string) (*model.CheckoutSession, error)
	Delete(ctx context.Context, id string) error
}
