//go:build !integration

package model

import (
	"errors"
	"math"
	"testing"

	"copytrade-subscription/internal/domain"
)

func TestPriceFor(t *testing.T) {
	t.Run("should charge the tier fee inside each band", func(t *testing.T) {
		cases := []struct {
			plan    Plan
			capital float64
			want    float64
		}{
			{PlanPro, 1000, 170},
			{PlanPro, 1500, 255},
			{PlanPro, 2999, 509.83},
			{PlanExpert, 3000, 450},
			{PlanExpert, 5999.99, 900},
			{PlanPremium, 6000, 720},
			{PlanPremium, 100000, 12000},
		}
		for _, c := range cases {
			got, err := PriceFor(c.plan, c.capital)
			if err != nil {
				t.Fatalf("PriceFor(%s, %v): unexpected error: %v", c.plan, c.capital, err)
			}
			if math.Abs(got-c.want) > 0.005 {
				t.Errorf("PriceFor(%s, %v) = %v, want %v", c.plan, c.capital, got, c.want)
			}
		}
	})

	t.Run("should reject capital outside the plan band", func(t *testing.T) {
		cases := []struct {
			plan    Plan
			capital float64
		}{
			{PlanPro, 999.99},
			{PlanPro, 3000},
			{PlanExpert, 2999.99},
			{PlanExpert, 6000},
			{PlanPremium, 5999.99},
		}
		for _, c := range cases {
			if _, err := PriceFor(c.plan, c.capital); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("PriceFor(%s, %v): expected ErrInvalidArgument, got %v", c.plan, c.capital, err)
			}
		}
	})

	t.Run("should reject an unknown plan", func(t *testing.T) {
		if _, err := PriceFor(Plan("Gold"), 2000); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPlanForCapital(t *testing.T) {
	t.Run("should pick the tier at band boundaries", func(t *testing.T) {
		cases := []struct {
			capital float64
			want    Plan
		}{
			{1000, PlanPro},
			{2999, PlanPro},
			{3000, PlanExpert},
			{5999.99, PlanExpert},
			{6000, PlanPremium},
		}
		for _, c := range cases {
			got, err := PlanForCapital(c.capital)
			if err != nil {
				t.Fatalf("PlanForCapital(%v): unexpected error: %v", c.capital, err)
			}
			if got != c.want {
				t.Errorf("PlanForCapital(%v) = %s, want %s", c.capital, got, c.want)
			}
		}
	})

	t.Run("should reject capital below all bands", func(t *testing.T) {
		if _, err := PlanForCapital(500); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestParsePlan(t *testing.T) {
	if _, err := ParsePlan("Expert"); err != nil {
		t.Errorf("expected Expert to parse, got %v", err)
	}
	if _, err := ParsePlan("expert"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for lowercase plan, got %v", err)
	}
}
