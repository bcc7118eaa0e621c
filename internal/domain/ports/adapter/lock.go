package adapter

import (
	"context"
	"time"
)

// Locker is a short-lived mutual exclusion primitive keyed by string. The
// verification flow takes a per-intent lock around admin actions; the DB
// status guard remains the authority, the lock just shortens the race window.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
