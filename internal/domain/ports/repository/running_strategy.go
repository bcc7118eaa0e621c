package repository

import (
	"context"
	"time"

	"copytrade-subscription/internal/domain/model"
)

type RunningStrategyRepository interface {
	Save(ctx context.Context, qx Tx, rs *model.RunningStrategy) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.RunningStrategy, error)
	FindByUserAndStrategy(ctx context.Context, qx Tx, userID, strategyID string) (*model.RunningStrategy, error)
	ListByUser(ctx context.Context, qx Tx, userID string) ([]*model.RunningStrategy, error)
	ListAll(ctx context.Context, qx Tx) ([]*model.RunningStrategy, error)
	SetExecutionStatus(ctx context.Context, qx Tx, id string, status model.ExecutionStatus) (bool, error)
	UpdateBroker(ctx context.Context, qx Tx, id string, b model.BrokerAccount) error
}

type ModificationRequestRepository interface {
	Save(ctx context.Context, qx Tx, m *model.ModificationRequest) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.ModificationRequest, error)
	ListByStatus(ctx context.Context, qx Tx, status model.ModificationStatus) ([]*model.ModificationRequest, error)
	// Resolve flips a pending request to approved/rejected; false when the
	// request was already resolved.
	Resolve(ctx context.Context, qx Tx, id string, status model.ModificationStatus, adminID string, at time.Time) (bool, error)
}
