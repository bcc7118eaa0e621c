package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `
  id, user_id, strategy_id, plan, capital, payable, payable_inr, fx_rate,
  method, COALESCE(broker_platform,''), COALESCE(broker_account_id,''),
  COALESCE(broker_password,''), COALESCE(broker_server,''),
  COALESCE(external_tx_id,''), COALESCE(proof_url,''), is_renewal,
  outcome, COALESCE(failure_code,''), COALESCE(rejection_reason,''),
  COALESCE(admin_message,''), COALESCE(admin_message_status,''),
  COALESCE(verified_by,''), created_at, updated_at, approved_at`

// openOutcomes guards every conditional status flip: a row changes only while
// it is still in a non-terminal position.
const openOutcomes = `('pending','in_process')`

func outcomeToString(o model.Outcome) string {
	switch o.Kind {
	case model.OutcomeInProcess:
		return "in_process"
	case model.OutcomeSucceeded:
		return "succeeded"
	case model.OutcomeRejected:
		return "rejected"
	default:
		return "pending"
	}
}

func outcomeKindFromString(s string) model.OutcomeKind {
	switch s {
	case "in_process":
		return model.OutcomeInProcess
	case "succeeded":
		return model.OutcomeSucceeded
	case "rejected":
		return model.OutcomeRejected
	default:
		return model.OutcomePending
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(row rowScanner) (*model.PaymentIntent, error) {
	var (
		p          model.PaymentIntent
		plan       string
		method     string
		platform   string
		acctID     string
		acctPass   string
		server     string
		outcome    string
		failure    string
		approvedAt *time.Time
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.StrategyID, &plan, &p.Capital, &p.Payable, &p.PayableINR, &p.FXRate,
		&method, &platform, &acctID, &acctPass, &server,
		&p.ExternalTxID, &p.ProofURL, &p.IsRenewal,
		&outcome, &failure, &p.Outcome.Reason,
		&p.AdminMessage, &p.AdminMessageStatus,
		&p.VerifiedBy, &p.CreatedAt, &p.UpdatedAt, &approvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Plan = model.Plan(plan)
	p.Method = model.PaymentMethod(method)
	p.Outcome.Kind = outcomeKindFromString(outcome)
	p.Outcome.ApprovedAt = approvedAt
	p.Failure = model.FailureCode(failure)
	if acctID != "" {
		p.Broker = &model.BrokerAccount{
			Platform:        model.Platform(platform),
			AccountID:       acctID,
			AccountPassword: acctPass,
			Server:          server,
		}
	}
	return &p, nil
}

func (r *paymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO payments (
  id, user_id, strategy_id, plan, capital, payable, payable_inr, fx_rate,
  method, broker_platform, broker_account_id, broker_password, broker_server,
  external_tx_id, proof_url, is_renewal, outcome, failure_code,
  rejection_reason, admin_message, admin_message_status, verified_by,
  created_at, updated_at, approved_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25
) ON CONFLICT (id) DO UPDATE SET
  capital=$5, payable=$6, payable_inr=$7, fx_rate=$8, method=$9,
  broker_platform=$10, broker_account_id=$11, broker_password=$12, broker_server=$13,
  external_tx_id=$14, proof_url=$15, outcome=$17, failure_code=$18,
  rejection_reason=$19, admin_message=$20, admin_message_status=$21,
  verified_by=$22, updated_at=$24, approved_at=$25;`

	var platform, acctID, acctPass, server *string
	if p.Broker != nil {
		pl := string(p.Broker.Platform)
		platform, acctID, acctPass, server = &pl, &p.Broker.AccountID, &p.Broker.AccountPassword, &p.Broker.Server
	}
	_, err := execSQL(ctx, r.pool, qx, q,
		p.ID, p.UserID, p.StrategyID, string(p.Plan), p.Capital, p.Payable, p.PayableINR, p.FXRate,
		string(p.Method), platform, acctID, acctPass, server,
		nullable(p.ExternalTxID), nullable(p.ProofURL), p.IsRenewal,
		outcomeToString(p.Outcome), nullable(string(p.Failure)),
		nullable(p.Outcome.Reason), nullable(p.AdminMessage), nullable(p.AdminMessageStatus),
		nullable(p.VerifiedBy), p.CreatedAt, p.UpdatedAt, p.Outcome.ApprovedAt,
	)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *paymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.PaymentIntent, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if inTx(qx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, qx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanIntent(row)
}

func (r *paymentRepo) List(ctx context.Context, qx repository.Tx, f repository.PaymentFilter) ([]*model.PaymentIntent, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []interface{}{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += ` AND user_id=$` + strconv.Itoa(len(args))
	}
	if f.Renewal != nil {
		args = append(args, *f.Renewal)
		q += ` AND is_renewal=$` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		outcomes, renewal, err := statusFilter(f.Status)
		if err != nil {
			return nil, err
		}
		args = append(args, outcomes)
		q += ` AND outcome = ANY($` + strconv.Itoa(len(args)) + `)`
		if renewal != nil {
			args = append(args, *renewal)
			q += ` AND is_renewal=$` + strconv.Itoa(len(args))
		}
	}
	q += ` ORDER BY created_at DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	q += ` LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := queryRows(ctx, r.pool, qx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// statusFilter translates a wire status into the stored outcomes plus a
// renewal constraint. A renewal stays renewal_pending through both pending
// and in_process, so that status matches two outcomes.
func statusFilter(s model.Status) ([]string, *bool, error) {
	tr, fl := true, false
	switch s {
	case model.StatusPending:
		return []string{"pending"}, &fl, nil
	case model.StatusInProcess:
		return []string{"in_process"}, &fl, nil
	case model.StatusCompleted:
		return []string{"succeeded"}, &fl, nil
	case model.StatusFailed:
		return []string{"rejected"}, &fl, nil
	case model.StatusRenewalPending:
		return []string{"pending", "in_process"}, &tr, nil
	case model.StatusRenewalApproved:
		return []string{"succeeded"}, &tr, nil
	case model.StatusRejected:
		return []string{"rejected"}, &tr, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, string(s))
}

func (r *paymentRepo) AttachProofIfPending(ctx context.Context, qx repository.Tx, id, externalTxID, proofURL string) (bool, error) {
	const q = `
UPDATE payments
   SET outcome='in_process', external_tx_id=$2, proof_url=$3, updated_at=NOW()
 WHERE id=$1 AND outcome='pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, externalTxID, proofURL)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkFailedIfOpen(ctx context.Context, qx repository.Tx, id string, code model.FailureCode) (bool, error) {
	const q = `
UPDATE payments
   SET outcome='rejected', failure_code=$2, updated_at=NOW()
 WHERE id=$1 AND outcome IN ` + openOutcomes + `;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(code))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkApproved(ctx context.Context, qx repository.Tx, id string, approvedAt time.Time, adminID string) (bool, error) {
	const q = `
UPDATE payments
   SET outcome='succeeded', approved_at=$2, verified_by=$3, updated_at=NOW()
 WHERE id=$1 AND outcome IN ` + openOutcomes + `;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, approvedAt, adminID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkRejected(ctx context.Context, qx repository.Tx, id, reason, adminID string) (bool, error) {
	const q = `
UPDATE payments
   SET outcome='rejected', rejection_reason=$2, verified_by=$3, updated_at=NOW()
 WHERE id=$1 AND outcome IN ` + openOutcomes + `;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, reason, adminID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) SetOutcomeIfOpen(ctx context.Context, qx repository.Tx, id string, kind model.OutcomeKind) (bool, error) {
	if kind != model.OutcomePending && kind != model.OutcomeInProcess {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE payments
   SET outcome=$2, updated_at=NOW()
 WHERE id=$1 AND outcome IN ` + openOutcomes + `;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, outcomeToString(model.Outcome{Kind: kind}))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) SetAdminMessage(ctx context.Context, qx repository.Tx, id, text string) error {
	const q = `
UPDATE payments
   SET admin_message=$2, admin_message_status='sent', updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, text)
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

// ListPendingOlderThan excludes in_process rows: a submitted proof parks the
// intent in the admin verification queue indefinitely.
func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + `
  FROM payments
 WHERE outcome='pending' AND created_at < $1
 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, olderThan, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) ListRenewalsExpiring(ctx context.Context, qx repository.Tx, from, to time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + `
  FROM payments
 WHERE outcome='succeeded'
   AND approved_at IS NOT NULL
   AND approved_at + interval '365 days' >= $1
   AND approved_at + interval '365 days' < $2
   AND reminder_sent_at IS NULL
 ORDER BY approved_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, qx, q, from, to, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) MarkReminderSent(ctx context.Context, qx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE payments SET reminder_sent_at=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, qx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
