package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
)

var _ repository.StrategyRepository = (*strategyRepo)(nil)

type strategyRepo struct{ pool *pgxpool.Pool }

func NewStrategyRepo(pool *pgxpool.Pool) *strategyRepo {
	return &strategyRepo{pool: pool}
}

func (r *strategyRepo) Save(ctx context.Context, qx repository.Tx, s *model.Strategy) error {
	const q = `
INSERT INTO strategies (id, name, enabled, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET name=$2, enabled=$3;`
	_, err := execSQL(ctx, r.pool, qx, q, s.ID, s.Name, s.Enabled, s.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *strategyRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Strategy, error) {
	row, err := pickRow(ctx, r.pool, qx, `SELECT id, name, enabled, created_at FROM strategies WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	var s model.Strategy
	if err := row.Scan(&s.ID, &s.Name, &s.Enabled, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *strategyRepo) ListEnabled(ctx context.Context, qx repository.Tx) ([]*model.Strategy, error) {
	rows, err := queryRows(ctx, r.pool, qx, `SELECT id, name, enabled, created_at FROM strategies WHERE enabled ORDER BY name;`)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Strategy
	for rows.Next() {
		var s model.Strategy
		if err := rows.Scan(&s.ID, &s.Name, &s.Enabled, &s.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &s)
	}
	return out, nil
}
