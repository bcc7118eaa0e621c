package repository

import (
	"context"

	"copytrade-subscription/internal/domain/model"
)

type StrategyRepository interface {
	Save(ctx context.Context, qx Tx, s *model.Strategy) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Strategy, error)
	ListEnabled(ctx context.Context, qx Tx) ([]*model.Strategy, error)
}
