package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/infra/metrics"
)

var _ adapter.RateProvider = (*HTTPRateProvider)(nil)

// Cache is the last-good store behind the provider. Satisfied by the redis
// rate cache; nil disables caching.
type Cache interface {
	Put(ctx context.Context, base, quote string, rate float64) error
	Get(ctx context.Context, base, quote string) (float64, error)
}

// HTTPRateProvider fetches FX rates from a JSON endpoint shaped like
// {"rates": {"INR": 83.2}}. It never fails: a bad fetch falls back to the
// last cached good value, then to the configured static rate.
type HTTPRateProvider struct {
	url      string
	fallback float64
	client   *http.Client
	cache    Cache
	log      *zerolog.Logger
}

func NewHTTPRateProvider(url string, fallback float64, cache Cache, logger *zerolog.Logger) *HTTPRateProvider {
	compLog := logger.With().Str("component", "RateProvider").Logger()
	return &HTTPRateProvider{
		url:      url,
		fallback: fallback,
		client:   &http.Client{Timeout: 5 * time.Second},
		cache:    cache,
		log:      &compLog,
	}
}

type ratePayload struct {
	Rates map[string]float64 `json:"rates"`
}

func (p *HTTPRateProvider) Rate(ctx context.Context, base, quote string) float64 {
	if rate, err := p.fetch(ctx, base, quote); err == nil {
		metrics.IncRateFetch("live")
		if p.cache != nil {
			if cerr := p.cache.Put(ctx, base, quote, rate); cerr != nil {
				p.log.Warn().Err(cerr).Msg("rate cache write failed")
			}
		}
		return rate
	} else {
		p.log.Warn().Err(err).Str("base", base).Str("quote", quote).Msg("live rate fetch failed")
	}

	if p.cache != nil {
		if rate, err := p.cache.Get(ctx, base, quote); err == nil {
			metrics.IncRateFetch("cached")
			return rate
		}
	}

	metrics.IncRateFetch("fallback")
	return p.fallback
}

func (p *HTTPRateProvider) fetch(ctx context.Context, base, quote string) (float64, error) {
	if p.url == "" {
		return 0, fmt.Errorf("rate url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"?base="+base, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate endpoint returned %d", resp.StatusCode)
	}
	var payload ratePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	rate, ok := payload.Rates[quote]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no positive %s rate in payload", quote)
	}
	return rate, nil
}
