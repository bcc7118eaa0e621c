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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &role, &u.Enabled, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (r *userRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, role, enabled, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET email=$2, role=$3, enabled=$4;`
	_, err := execSQL(ctx, r.pool, qx, q, u.ID, u.Email, string(u.Role), u.Enabled, u.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, qx, `SELECT id, email, role, enabled, created_at FROM users WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, qx repository.Tx, email string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, qx, `SELECT id, email, role, enabled, created_at FROM users WHERE email=$1;`, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) SetEnabled(ctx context.Context, qx repository.Tx, id string, enabled bool) error {
	cmd, err := execSQL(ctx, r.pool, qx, `UPDATE users SET enabled=$2 WHERE id=$1;`, id, enabled)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, qx repository.Tx, offset, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT id, email, role, enabled, created_at FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
