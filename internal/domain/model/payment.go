package model

import (
	"fmt"
	"strings"
	"time"

	"copytrade-subscription/internal/domain"
)

// PaymentMethod is how the user pays the subscription fee.
type PaymentMethod string

const (
	MethodUSDTERC20 PaymentMethod = "USDT_ERC20"
	MethodUSDTTRC20 PaymentMethod = "USDT_TRC20"
	MethodUPI       PaymentMethod = "UPI"
)

func ParseMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodUSDTERC20, MethodUSDTTRC20, MethodUPI:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, s)
}

// Platform identifies the broker terminal type.
type Platform string

const (
	PlatformMT4 Platform = "MT4"
	PlatformMT5 Platform = "MT5"
)

// BrokerAccount holds the execution account credentials captured during
// checkout. The password is encrypted before it reaches storage.
type BrokerAccount struct {
	Platform        Platform
	AccountID       string
	AccountPassword string
	Server          string
}

func (b BrokerAccount) Validate() error {
	if b.Platform != PlatformMT4 && b.Platform != PlatformMT5 {
		return fmt.Errorf("%w: platform must be MT4 or MT5", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(b.AccountID) == "" {
		return fmt.Errorf("%w: broker account id is required", domain.ErrInvalidArgument)
	}
	if b.AccountPassword == "" {
		return fmt.Errorf("%w: broker account password is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(b.Server) == "" {
		return fmt.Errorf("%w: broker server name is required", domain.ErrInvalidArgument)
	}
	return nil
}

// OutcomeKind is the internal lifecycle position of an intent. The fresh vs.
// renewal wire vocabularies both map onto these four positions; IsRenewal is
// carried separately on the intent.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeInProcess
	OutcomeSucceeded
	OutcomeRejected
)

// Outcome is the tagged lifecycle state: ApprovedAt is set only for
// Succeeded, Reason only for Rejected.
type Outcome struct {
	Kind       OutcomeKind
	ApprovedAt *time.Time
	Reason     string
}

func (o Outcome) Terminal() bool {
	return o.Kind == OutcomeSucceeded || o.Kind == OutcomeRejected
}

// FailureCode records why a rejected intent failed when the client, not an
// admin, terminated it.
type FailureCode string

const (
	FailureNone      FailureCode = ""
	FailureExpired   FailureCode = "EXPIRED"
	FailureCancelled FailureCode = "CANCELLED"
)

// Status is the wire-level status string. The fresh and renewal flows use
// different vocabularies for the same lifecycle positions; all mapping between
// the two representations lives in this file.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInProcess       Status = "in_process"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRenewalPending  Status = "renewal_pending"
	StatusRenewalApproved Status = "renewal_approved"
	StatusRejected        Status = "rejected"
)

// AdminStatuses is the single allow-list every handler accepting a status
// transition validates against.
var AdminStatuses = []Status{
	StatusPending, StatusInProcess, StatusCompleted, StatusFailed,
	StatusRenewalPending, StatusRenewalApproved, StatusRejected,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range AdminStatuses {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, s)
}

// PaymentIntent is one attempted payment, fresh subscription or renewal,
// tracked through its own lifecycle. Never deleted; a renewal is a new intent.
type PaymentIntent struct {
	ID         string
	UserID     string
	StrategyID string
	Plan       Plan

	Capital    float64 // user-entered account size, USD
	Payable    float64 // computed fee actually charged, USD
	PayableINR float64 // FX-derived secondary amount
	FXRate     float64 // rate used at creation time

	Method PaymentMethod
	Broker *BrokerAccount // optional, captured pre-payment

	ExternalTxID string // on-chain hash / UPI reference claimed by the user
	ProofURL     string // uploaded receipt image

	IsRenewal bool
	Outcome   Outcome
	Failure   FailureCode // set when the client expired/cancelled the intent

	AdminMessage       string
	AdminMessageStatus string
	VerifiedBy         string // admin id, set on any terminal admin action

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPaymentIntent validates and constructs an intent in its initial state.
func NewPaymentIntent(id, userID, strategyID string, plan Plan, capital float64, method PaymentMethod, broker *BrokerAccount, isRenewal bool) (*PaymentIntent, error) {
	if id == "" || userID == "" || strategyID == "" {
		return nil, domain.ErrInvalidArgument
	}
	payable, err := PriceFor(plan, capital)
	if err != nil {
		return nil, err
	}
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if broker != nil {
		if err := broker.Validate(); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	return &PaymentIntent{
		ID:         id,
		UserID:     userID,
		StrategyID: strategyID,
		Plan:       plan,
		Capital:    capital,
		Payable:    payable,
		Method:     method,
		Broker:     broker,
		IsRenewal:  isRenewal,
		Outcome:    Outcome{Kind: OutcomePending},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Status maps the internal outcome onto the wire vocabulary for this flow.
func (p *PaymentIntent) Status() Status {
	if p.IsRenewal {
		switch p.Outcome.Kind {
		case OutcomeSucceeded:
			return StatusRenewalApproved
		case OutcomeRejected:
			return StatusRejected
		default:
			return StatusRenewalPending
		}
	}
	switch p.Outcome.Kind {
	case OutcomeInProcess:
		return StatusInProcess
	case OutcomeSucceeded:
		return StatusCompleted
	case OutcomeRejected:
		return StatusFailed
	default:
		return StatusPending
	}
}

func (p *PaymentIntent) Terminal() bool { return p.Outcome.Terminal() }

// CanAttachProof: proof submission moves pending -> in_process, once.
func (p *PaymentIntent) CanAttachProof() bool { return p.Outcome.Kind == OutcomePending }

// CanClientTerminate: expiry/cancel apply only to an intent still in flight.
func (p *PaymentIntent) CanClientTerminate() bool { return !p.Terminal() }

// CanVerify: admin approve/reject is valid from any non-terminal state.
func (p *PaymentIntent) CanVerify() bool { return !p.Terminal() }

// RenewalValidity is the entitlement window granted by one approval.
const RenewalValidity = 365 * 24 * time.Hour

// RenewalExpiresAt derives entitlement expiry from the approval stamp. Expiry
// is never stored; it is always recomputed from ApprovedAt so the admin and
// user views cannot drift.
func RenewalExpiresAt(approvedAt time.Time) time.Time {
	return approvedAt.Add(RenewalValidity)
}

// RenewalActive reports whether an approval is still within its validity
// window at the given instant.
func RenewalActive(approvedAt, at time.Time) bool {
	return at.Before(RenewalExpiresAt(approvedAt))
}

// Active reports whether a succeeded intent still grants entitlement at the
// given instant. Non-terminal and rejected intents are never active.
func (p *PaymentIntent) Active(at time.Time) bool {
	if p.Outcome.Kind != OutcomeSucceeded || p.Outcome.ApprovedAt == nil {
		return false
	}
	return RenewalActive(*p.Outcome.ApprovedAt, at)
}
