package repository

import (
	"context"

	"copytrade-subscription/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, qx Tx, u *model.User) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, qx Tx, email string) (*model.User, error)
	SetEnabled(ctx context.Context, qx Tx, id string, enabled bool) error
	List(ctx context.Context, qx Tx, offset, limit int) ([]*model.User, error)
}
