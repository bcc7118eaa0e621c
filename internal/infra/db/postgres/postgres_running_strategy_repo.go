package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
)

var _ repository.RunningStrategyRepository = (*runningStrategyRepo)(nil)

type runningStrategyRepo struct{ pool *pgxpool.Pool }

func NewRunningStrategyRepo(pool *pgxpool.Pool) *runningStrategyRepo {
	return &runningStrategyRepo{pool: pool}
}

const runningStrategyColumns = `
  id, user_id, strategy_id, payment_id,
  broker_platform, broker_account_id, broker_password, broker_server,
  execution_status, created_at, updated_at`

func scanRunningStrategy(row rowScanner) (*model.RunningStrategy, error) {
	var (
		rs       model.RunningStrategy
		platform string
		status   string
	)
	err := row.Scan(
		&rs.ID, &rs.UserID, &rs.StrategyID, &rs.PaymentID,
		&platform, &rs.Broker.AccountID, &rs.Broker.AccountPassword, &rs.Broker.Server,
		&status, &rs.CreatedAt, &rs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rs.Broker.Platform = model.Platform(platform)
	rs.Execution = model.ExecutionStatus(status)
	return &rs, nil
}

func (r *runningStrategyRepo) Save(ctx context.Context, qx repository.Tx, rs *model.RunningStrategy) error {
	const q = `
INSERT INTO running_strategies (
  id, user_id, strategy_id, payment_id,
  broker_platform, broker_account_id, broker_password, broker_server,
  execution_status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  payment_id=$4,
  broker_platform=$5, broker_account_id=$6, broker_password=$7, broker_server=$8,
  execution_status=$9, updated_at=$11;`
	_, err := execSQL(ctx, r.pool, qx, q,
		rs.ID, rs.UserID, rs.StrategyID, rs.PaymentID,
		string(rs.Broker.Platform), rs.Broker.AccountID, rs.Broker.AccountPassword, rs.Broker.Server,
		string(rs.Execution), rs.CreatedAt, rs.UpdatedAt,
	)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *runningStrategyRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.RunningStrategy, error) {
	q := `SELECT ` + runningStrategyColumns + ` FROM running_strategies WHERE id=$1`
	if inTx(qx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, qx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanRunningStrategy(row)
}

func (r *runningStrategyRepo) FindByUserAndStrategy(ctx context.Context, qx repository.Tx, userID, strategyID string) (*model.RunningStrategy, error) {
	q := `SELECT ` + runningStrategyColumns + ` FROM running_strategies WHERE user_id=$1 AND strategy_id=$2;`
	row, err := pickRow(ctx, r.pool, qx, q, userID, strategyID)
	if err != nil {
		return nil, err
	}
	return scanRunningStrategy(row)
}

func (r *runningStrategyRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string) ([]*model.RunningStrategy, error) {
	q := `SELECT ` + runningStrategyColumns + ` FROM running_strategies WHERE user_id=$1 ORDER BY created_at DESC;`
	return r.list(ctx, qx, q, userID)
}

func (r *runningStrategyRepo) ListAll(ctx context.Context, qx repository.Tx) ([]*model.RunningStrategy, error) {
	q := `SELECT ` + runningStrategyColumns + ` FROM running_strategies ORDER BY created_at DESC;`
	return r.list(ctx, qx, q)
}

func (r *runningStrategyRepo) list(ctx context.Context, qx repository.Tx, q string, args ...interface{}) ([]*model.RunningStrategy, error) {
	rows, err := queryRows(ctx, r.pool, qx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.RunningStrategy
	for rows.Next() {
		rs, err := scanRunningStrategy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func (r *runningStrategyRepo) SetExecutionStatus(ctx context.Context, qx repository.Tx, id string, status model.ExecutionStatus) (bool, error) {
	const q = `UPDATE running_strategies SET execution_status=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *runningStrategyRepo) UpdateBroker(ctx context.Context, qx repository.Tx, id string, b model.BrokerAccount) error {
	const q = `
UPDATE running_strategies
   SET broker_platform=$2, broker_account_id=$3, broker_password=$4, broker_server=$5, updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(b.Platform), b.AccountID, b.AccountPassword, b.Server)
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

var _ repository.ModificationRequestRepository = (*modificationRequestRepo)(nil)

type modificationRequestRepo struct{ pool *pgxpool.Pool }

func NewModificationRequestRepo(pool *pgxpool.Pool) *modificationRequestRepo {
	return &modificationRequestRepo{pool: pool}
}

const modificationColumns = `
  id, running_strategy_id, user_id,
  broker_platform, broker_account_id, broker_password, broker_server,
  status, COALESCE(resolved_by,''), resolved_at, created_at`

func scanModification(row rowScanner) (*model.ModificationRequest, error) {
	var (
		m        model.ModificationRequest
		platform string
		status   string
	)
	err := row.Scan(
		&m.ID, &m.RunningStrategyID, &m.UserID,
		&platform, &m.Proposed.AccountID, &m.Proposed.AccountPassword, &m.Proposed.Server,
		&status, &m.ResolvedBy, &m.ResolvedAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m.Proposed.Platform = model.Platform(platform)
	m.Status = model.ModificationStatus(status)
	return &m, nil
}

func (r *modificationRequestRepo) Save(ctx context.Context, qx repository.Tx, m *model.ModificationRequest) error {
	const q = `
INSERT INTO modification_requests (
  id, running_strategy_id, user_id,
  broker_platform, broker_account_id, broker_password, broker_server,
  status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	_, err := execSQL(ctx, r.pool, qx, q,
		m.ID, m.RunningStrategyID, m.UserID,
		string(m.Proposed.Platform), m.Proposed.AccountID, m.Proposed.AccountPassword, m.Proposed.Server,
		string(m.Status), m.CreatedAt,
	)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *modificationRequestRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.ModificationRequest, error) {
	q := `SELECT ` + modificationColumns + ` FROM modification_requests WHERE id=$1`
	if inTx(qx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, qx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanModification(row)
}

func (r *modificationRequestRepo) ListByStatus(ctx context.Context, qx repository.Tx, status model.ModificationStatus) ([]*model.ModificationRequest, error) {
	q := `SELECT ` + modificationColumns + ` FROM modification_requests WHERE status=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q, string(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.ModificationRequest
	for rows.Next() {
		m, err := scanModification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *modificationRequestRepo) Resolve(ctx context.Context, qx repository.Tx, id string, status model.ModificationStatus, adminID string, at time.Time) (bool, error) {
	const q = `
UPDATE modification_requests
   SET status=$2, resolved_by=$3, resolved_at=$4
 WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(status), adminID, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
