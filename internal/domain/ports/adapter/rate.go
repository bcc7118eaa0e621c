package adapter

import "context"

// RateProvider converts between currencies. Implementations never fail: any
// fetch problem (network, malformed payload, non-positive value) degrades to
// the last successful value, then to a configured static fallback, so the
// returned rate is always positive.
type RateProvider interface {
	Rate(ctx context.Context, base, quote string) float64
}
