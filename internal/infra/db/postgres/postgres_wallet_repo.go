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

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) Credit(ctx context.Context, qx repository.Tx, e *model.WalletEntry) (float64, error) {
	if e == nil || e.Amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const insertEntry = `
INSERT INTO wallet_entries (id, user_id, kind, amount, payment_id, ref, created_at)
VALUES ($1,$2,'deposit',$3,$4,$5,$6);`
	if _, err := execSQL(ctx, r.pool, qx, insertEntry,
		e.ID, e.UserID, e.Amount, nullable(e.PaymentID), nullable(e.Ref), e.CreatedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}

	const upsert = `
INSERT INTO wallets (user_id, balance, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE
   SET balance = wallets.balance + $2, updated_at = NOW()
RETURNING balance;`
	row, err := pickRow(ctx, r.pool, qx, upsert, e.UserID, e.Amount)
	if err != nil {
		return 0, err
	}
	var balance float64
	if err := row.Scan(&balance); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return balance, nil
}

// Debit clamps at zero rather than rejecting an overdraft. The CTE reads the
// old balance in the same statement so the caller can tell a clamp happened.
func (r *walletRepo) Debit(ctx context.Context, qx repository.Tx, e *model.WalletEntry) (float64, bool, error) {
	if e == nil || e.Amount <= 0 {
		return 0, false, domain.ErrInvalidArgument
	}
	const insertEntry = `
INSERT INTO wallet_entries (id, user_id, kind, amount, payment_id, ref, created_at)
VALUES ($1,$2,'charge',$3,$4,$5,$6);`
	if _, err := execSQL(ctx, r.pool, qx, insertEntry,
		e.ID, e.UserID, e.Amount, nullable(e.PaymentID), nullable(e.Ref), e.CreatedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, false, err
		}
		return 0, false, domain.ErrOperationFailed
	}

	// A user with no wallet row yet debits from zero.
	const ensure = `
INSERT INTO wallets (user_id, balance, updated_at)
VALUES ($1, 0, NOW())
ON CONFLICT (user_id) DO NOTHING;`
	if _, err := execSQL(ctx, r.pool, qx, ensure, e.UserID); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, false, err
		}
		return 0, false, domain.ErrOperationFailed
	}

	const debit = `
WITH prev AS (
  SELECT balance AS old_balance FROM wallets WHERE user_id=$1 FOR UPDATE
)
UPDATE wallets
   SET balance = GREATEST(wallets.balance - $2, 0), updated_at = NOW()
  FROM prev
 WHERE wallets.user_id = $1
RETURNING prev.old_balance, wallets.balance;`
	row, err := pickRow(ctx, r.pool, qx, debit, e.UserID, e.Amount)
	if err != nil {
		return 0, false, err
	}
	var oldBalance, newBalance float64
	if err := row.Scan(&oldBalance, &newBalance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, domain.ErrNotFound
		}
		return 0, false, domain.ErrReadDatabaseRow
	}
	return newBalance, oldBalance < e.Amount, nil
}

func (r *walletRepo) Balance(ctx context.Context, qx repository.Tx, userID string) (float64, error) {
	row, err := pickRow(ctx, r.pool, qx, `SELECT balance FROM wallets WHERE user_id=$1;`, userID)
	if err != nil {
		return 0, err
	}
	var balance float64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return balance, nil
}

func (r *walletRepo) Entries(ctx context.Context, qx repository.Tx, userID string) ([]*model.WalletEntry, error) {
	const q = `
SELECT id, user_id, kind, amount, COALESCE(payment_id,''), COALESCE(ref,''), created_at
  FROM wallet_entries
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT 500;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.WalletEntry
	for rows.Next() {
		var (
			e    model.WalletEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Amount, &e.PaymentID, &e.Ref, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		e.Kind = model.WalletEntryKind(kind)
		out = append(out, &e)
	}
	return out, nil
}

func (r *walletRepo) SetBalance(ctx context.Context, qx repository.Tx, userID string, balance float64) error {
	if balance < 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO wallets (user_id, balance, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET balance=$2, updated_at=NOW();`
	if _, err := execSQL(ctx, r.pool, qx, q, userID, balance); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
