package model

import (
	"fmt"
	"time"

	"copytrade-subscription/internal/domain"
)

// CheckoutStage is one step of the five-stage payment wizard.
type CheckoutStage int

const (
	StageMethodSelection CheckoutStage = iota + 1
	StageCapitalInput
	StageBrokerDetails
	StageReview
	StageFinalPayment
)

func (s CheckoutStage) String() string {
	switch s {
	case StageMethodSelection:
		return "method_selection"
	case StageCapitalInput:
		return "capital_input"
	case StageBrokerDetails:
		return "broker_details"
	case StageReview:
		return "review"
	case StageFinalPayment:
		return "final_payment"
	}
	return "unknown"
}

// CheckoutTTL bounds the whole session from entry. Stage transitions do not
// reset it.
const CheckoutTTL = 15 * time.Minute

// CheckoutDraft is the in-progress payment accumulated by the wizard. It is
// an explicit value threaded through stage transitions, not shared state;
// each transition returns a new session snapshot.
type CheckoutDraft struct {
	StrategyID string
	Plan       Plan
	Method     PaymentMethod
	Capital    float64
	Payable    float64
	PayableINR float64
	FXRate     float64
	Broker     *BrokerAccount
	Confirmed  bool
}

// CheckoutSession drives the wizard for one user. Stage transitions validate
// before advancing; back transitions never validate. The session carries the
// id of the intent it created (if any) so expiry and cancel can settle it.
type CheckoutSession struct {
	ID        string
	UserID    string
	Stage     CheckoutStage
	Draft     CheckoutDraft
	IsRenewal bool
	IntentID  string
	StartedAt time.Time
	ExpiresAt time.Time
}

func NewCheckoutSession(id, userID, strategyID string, plan Plan, isRenewal bool, now time.Time) (*CheckoutSession, error) {
	if id == "" || userID == "" || strategyID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := plan.Band(); err != nil {
		return nil, err
	}
	return &CheckoutSession{
		ID:        id,
		UserID:    userID,
		Stage:     StageMethodSelection,
		Draft:     CheckoutDraft{StrategyID: strategyID, Plan: plan},
		IsRenewal: isRenewal,
		StartedAt: now,
		ExpiresAt: now.Add(CheckoutTTL),
	}, nil
}

func (s *CheckoutSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s CheckoutSession) stageError(want CheckoutStage) error {
	return fmt.Errorf("%w: action requires stage %s, session is at %s", domain.ErrInvalidArgument, want, s.Stage)
}

// WithMethod records the payment method and advances to capital input.
func (s CheckoutSession) WithMethod(m PaymentMethod) (CheckoutSession, error) {
	if s.Stage != StageMethodSelection {
		return s, s.stageError(StageMethodSelection)
	}
	if _, err := ParseMethod(string(m)); err != nil {
		return s, err
	}
	s.Draft.Method = m
	s.Stage = StageCapitalInput
	return s, nil
}

// WithCapital records the entered capital and the quote computed for it, then
// advances to broker details. Out-of-band capital is rejected in place.
func (s CheckoutSession) WithCapital(capital, payable, payableINR, fxRate float64) (CheckoutSession, error) {
	if s.Stage != StageCapitalInput {
		return s, s.stageError(StageCapitalInput)
	}
	if _, err := PriceFor(s.Draft.Plan, capital); err != nil {
		return s, err
	}
	s.Draft.Capital = capital
	s.Draft.Payable = payable
	s.Draft.PayableINR = payableINR
	s.Draft.FXRate = fxRate
	s.Draft.Confirmed = false
	s.Stage = StageBrokerDetails
	return s, nil
}

// WithBroker records the execution account and advances to review.
func (s CheckoutSession) WithBroker(b BrokerAccount) (CheckoutSession, error) {
	if s.Stage != StageBrokerDetails {
		return s, s.stageError(StageBrokerDetails)
	}
	if err := b.Validate(); err != nil {
		return s, err
	}
	s.Draft.Broker = &b
	s.Draft.Confirmed = false
	s.Stage = StageReview
	return s, nil
}

// Confirm requires the explicit review checkbox and advances to the final
// payment stage.
func (s CheckoutSession) Confirm(confirmed bool) (CheckoutSession, error) {
	if s.Stage != StageReview {
		return s, s.stageError(StageReview)
	}
	if !confirmed {
		return s, fmt.Errorf("%w: review must be explicitly confirmed", domain.ErrInvalidArgument)
	}
	if s.Draft.Method == "" || s.Draft.Capital == 0 || s.Draft.Broker == nil {
		return s, fmt.Errorf("%w: draft is incomplete", domain.ErrInvalidArgument)
	}
	s.Draft.Confirmed = true
	s.Stage = StageFinalPayment
	return s, nil
}

// Back steps to the previous stage. From the first stage it is a no-op.
func (s CheckoutSession) Back() CheckoutSession {
	if s.Stage > StageMethodSelection {
		s.Stage--
		s.Draft.Confirmed = false
	}
	return s
}

// EditCapital jumps from review back to the capital stage.
func (s CheckoutSession) EditCapital() (CheckoutSession, error) {
	if s.Stage != StageReview {
		return s, s.stageError(StageReview)
	}
	s.Stage = StageCapitalInput
	s.Draft.Confirmed = false
	return s, nil
}

// EditBroker jumps from review back to the broker stage.
func (s CheckoutSession) EditBroker() (CheckoutSession, error) {
	if s.Stage != StageReview {
		return s, s.stageError(StageReview)
	}
	s.Stage = StageBrokerDetails
	s.Draft.Confirmed = false
	return s, nil
}
