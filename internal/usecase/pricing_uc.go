// File: internal/usecase/pricing_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
)

// Compile-time check
var _ PricingUseCase = (*pricingUC)(nil)

// Quote is the priced result of one capital entry: the USD fee plus the
// FX-derived secondary amount shown next to the UPI option.
type Quote struct {
	Plan       model.Plan
	Capital    float64
	Payable    float64
	FXRate     float64
	PayableINR float64
}

type PricingUseCase interface {
	// Quote validates the capital against the plan band and prices it. Rate
	// problems degrade to the provider's fallback; they never fail a quote.
	Quote(ctx context.Context, plan model.Plan, capital float64) (*Quote, error)
}

type pricingUC struct {
	rates adapter.RateProvider
	base  string
	quote string
	log   *zerolog.Logger
}

func NewPricingUseCase(rates adapter.RateProvider, base, quote string, logger *zerolog.Logger) *pricingUC {
	compLog := logger.With().Str("component", "PricingUC").Logger()
	return &pricingUC{rates: rates, base: base, quote: quote, log: &compLog}
}

func (u *pricingUC) Quote(ctx context.Context, plan model.Plan, capital float64) (*Quote, error) {
	payable, err := model.PriceFor(plan, capital)
	if err != nil {
		return nil, err
	}
	rate := u.rates.Rate(ctx, u.base, u.quote)
	return &Quote{
		Plan:       plan,
		Capital:    capital,
		Payable:    payable,
		FXRate:     rate,
		PayableINR: model.RoundCents(payable * rate),
	}, nil
}
