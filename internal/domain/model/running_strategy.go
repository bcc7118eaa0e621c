package model

import (
	"fmt"
	"time"

	"copytrade-subscription/internal/domain"
)

// ExecutionStatus is the admin-set health of the broker account behind a
// running subscription. It is independent of the payment lifecycle.
type ExecutionStatus string

const (
	ExecInProcess     ExecutionStatus = "in-process"
	ExecRunning       ExecutionStatus = "running"
	ExecWrongPassword ExecutionStatus = "wrong-account-password"
	ExecWrongAccount  ExecutionStatus = "wrong-account-id"
	ExecWrongServer   ExecutionStatus = "wrong-account-server-name"
)

// ExecutionStatuses is the shared allow-list for every handler that accepts
// an execution-health update.
var ExecutionStatuses = []ExecutionStatus{
	ExecInProcess, ExecRunning, ExecWrongPassword, ExecWrongAccount, ExecWrongServer,
}

func ParseExecutionStatus(s string) (ExecutionStatus, error) {
	for _, st := range ExecutionStatuses {
		if ExecutionStatus(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown execution status %q", domain.ErrInvalidArgument, s)
}

// RunningStrategy is the activated state of a strategy for a user, created
// implicitly when the associated intent reaches terminal success.
type RunningStrategy struct {
	ID         string
	UserID     string
	StrategyID string
	PaymentID  string // intent whose approval activated this
	Broker     BrokerAccount
	Execution  ExecutionStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewRunningStrategy(id string, p *PaymentIntent) (*RunningStrategy, error) {
	if id == "" || p == nil || p.Broker == nil {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &RunningStrategy{
		ID:         id,
		UserID:     p.UserID,
		StrategyID: p.StrategyID,
		PaymentID:  p.ID,
		Broker:     *p.Broker,
		Execution:  ExecInProcess,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ModificationStatus tracks a broker-detail change request through the same
// approve/reject shape payments use.
type ModificationStatus string

const (
	ModificationPending  ModificationStatus = "pending"
	ModificationApproved ModificationStatus = "approved"
	ModificationRejected ModificationStatus = "rejected"
)

// ModificationRequest is a user-proposed change to the broker account of a
// running subscription, awaiting admin re-approval.
type ModificationRequest struct {
	ID                string
	RunningStrategyID string
	UserID            string
	Proposed          BrokerAccount
	Status            ModificationStatus
	CreatedAt         time.Time
	ResolvedAt        *time.Time
	ResolvedBy        string
}
