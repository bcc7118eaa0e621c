package model

import (
	"fmt"
	"math"

	"copytrade-subscription/internal/domain"
)

// Plan is a subscription tier. Each tier covers an inclusive capital band and
// charges a flat percentage of the entered capital as the subscription fee.
type Plan string

const (
	PlanPro     Plan = "Pro"
	PlanExpert  Plan = "Expert"
	PlanPremium Plan = "Premium"
)

// PlanBand describes the capital range a tier applies to. Upper is exclusive
// (the next tier starts there); Premium is open-ended.
type PlanBand struct {
	Lower      float64
	Upper      float64
	FeePercent float64
}

var planBands = map[Plan]PlanBand{
	PlanPro:     {Lower: 1000, Upper: 3000, FeePercent: 17},
	PlanExpert:  {Lower: 3000, Upper: 6000, FeePercent: 15},
	PlanPremium: {Lower: 6000, Upper: math.Inf(1), FeePercent: 12},
}

func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanPro, PlanExpert, PlanPremium:
		return Plan(s), nil
	}
	return "", fmt.Errorf("%w: unknown plan %q", domain.ErrInvalidArgument, s)
}

func (p Plan) Band() (PlanBand, error) {
	b, ok := planBands[p]
	if !ok {
		return PlanBand{}, fmt.Errorf("%w: unknown plan %q", domain.ErrInvalidArgument, string(p))
	}
	return b, nil
}

// Contains reports whether capital falls inside the band.
func (b PlanBand) Contains(capital float64) bool {
	return capital >= b.Lower && capital < b.Upper
}

// PlanForCapital resolves the tier a capital amount belongs to.
func PlanForCapital(capital float64) (Plan, error) {
	for _, p := range []Plan{PlanPro, PlanExpert, PlanPremium} {
		if planBands[p].Contains(capital) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: capital %.2f is below the minimum account size %.0f", domain.ErrInvalidArgument, capital, planBands[PlanPro].Lower)
}

// PriceFor is the pricing policy: validates that capital lies within the
// plan's band and returns the payable fee, rounded to cents. Deterministic
// and side-effect free.
func PriceFor(p Plan, capital float64) (float64, error) {
	b, err := p.Band()
	if err != nil {
		return 0, err
	}
	if !b.Contains(capital) {
		if math.IsInf(b.Upper, 1) {
			return 0, fmt.Errorf("%w: %s plan requires capital of at least %.0f", domain.ErrInvalidArgument, p, b.Lower)
		}
		return 0, fmt.Errorf("%w: %s plan requires capital between %.0f and %.2f", domain.ErrInvalidArgument, p, b.Lower, b.Upper-0.01)
	}
	return RoundCents(capital * b.FeePercent / 100), nil
}

// RoundCents rounds a monetary amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
