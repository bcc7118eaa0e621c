// File: internal/usecase/verification_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/infra/metrics"
)

// Compile-time check
var _ VerificationUseCase = (*verificationUC)(nil)

const verifyLockTTL = 10 * time.Second

// VerificationUseCase is the admin half of the payment state machine. All
// callers must already be authenticated as ADMIN; adminID is the verifier
// identity stamped onto terminal actions.
type VerificationUseCase interface {
	// Approve settles a non-terminal intent as succeeded. For fresh deposits
	// the wallet credit and the running-strategy activation commit in the
	// same transaction as the status flip; if either fails, nothing moves.
	Approve(ctx context.Context, adminID, intentID string) (*model.PaymentIntent, error)

	// Reject settles a non-terminal intent as rejected. Reason is required.
	Reject(ctx context.Context, adminID, intentID, reason string) (*model.PaymentIntent, error)

	// Message attaches an out-of-band clarification without touching status.
	Message(ctx context.Context, adminID, intentID, text string) (*model.PaymentIntent, error)

	// SetStatus is the bulk admin form: any status from the shared
	// allow-list, routed through the guarded approve/reject paths.
	SetStatus(ctx context.Context, adminID, intentID string, status model.Status, message string) (*model.PaymentIntent, error)
}

type verificationUC struct {
	payments   repository.PaymentRepository
	wallets    repository.WalletRepository
	running    repository.RunningStrategyRepository
	users      repository.UserRepository
	strategies repository.StrategyRepository
	tm         repository.TransactionManager
	locker     adapter.Locker
	mailer     adapter.Mailer
	log        *zerolog.Logger
}

func NewVerificationUseCase(
	payments repository.PaymentRepository,
	wallets repository.WalletRepository,
	running repository.RunningStrategyRepository,
	users repository.UserRepository,
	strategies repository.StrategyRepository,
	tm repository.TransactionManager,
	locker adapter.Locker,
	mailer adapter.Mailer,
	logger *zerolog.Logger,
) *verificationUC {
	compLog := logger.With().Str("component", "VerificationUC").Logger()
	return &verificationUC{
		payments: payments, wallets: wallets, running: running,
		users: users, strategies: strategies, tm: tm,
		locker: locker, mailer: mailer, log: &compLog,
	}
}

func (u *verificationUC) Approve(ctx context.Context, adminID, intentID string) (*model.PaymentIntent, error) {
	unlock, err := u.lock(ctx, intentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *model.PaymentIntent
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, qx, intentID)
		if err != nil {
			return err
		}
		if !p.CanVerify() {
			return fmt.Errorf("%w: intent %s is already %s", domain.ErrConflict, intentID, p.Status())
		}

		now := time.Now()
		ok, err := u.payments.MarkApproved(ctx, qx, intentID, now, adminID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: intent %s settled concurrently", domain.ErrConflict, intentID)
		}

		// Wallet top-up only for fresh deposits; renewals extend entitlement
		// without touching the ledger balance.
		if !p.IsRenewal {
			entry := &model.WalletEntry{
				ID:        uuid.NewString(),
				UserID:    p.UserID,
				Kind:      model.EntryDeposit,
				Amount:    p.Payable,
				PaymentID: p.ID,
				CreatedAt: now,
			}
			if _, err := u.wallets.Credit(ctx, qx, entry); err != nil {
				return fmt.Errorf("wallet credit: %w", err)
			}
		}

		if p.Broker != nil {
			if err := u.activate(ctx, qx, p); err != nil {
				return err
			}
		}

		p.Outcome = model.Outcome{Kind: model.OutcomeSucceeded, ApprovedAt: &now}
		p.VerifiedBy = adminID
		p.UpdatedAt = now
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncIntentVerified("approved", out.IsRenewal)
	if !out.IsRenewal {
		metrics.AddWalletCredited(out.Payable)
	}
	u.log.Info().Str("intent_id", out.ID).Str("admin_id", adminID).Bool("renewal", out.IsRenewal).Msg("intent approved")
	u.notify(out, "")
	return out, nil
}

// activate creates the running subscription on first approval; renewals and
// re-approvals reuse the existing row.
func (u *verificationUC) activate(ctx context.Context, qx repository.Tx, p *model.PaymentIntent) error {
	_, err := u.running.FindByUserAndStrategy(ctx, qx, p.UserID, p.StrategyID)
	if err == nil {
		return nil
	}
	if err != domain.ErrNotFound {
		return err
	}
	rs, err := model.NewRunningStrategy(uuid.NewString(), p)
	if err != nil {
		return err
	}
	return u.running.Save(ctx, qx, rs)
}

func (u *verificationUC) Reject(ctx context.Context, adminID, intentID, reason string) (*model.PaymentIntent, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrInvalidArgument)
	}

	unlock, err := u.lock(ctx, intentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := u.payments.FindByID(ctx, nil, intentID)
	if err != nil {
		return nil, err
	}
	if !p.CanVerify() {
		return nil, fmt.Errorf("%w: intent %s is already %s", domain.ErrConflict, intentID, p.Status())
	}
	ok, err := u.payments.MarkRejected(ctx, nil, intentID, reason, adminID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: intent %s settled concurrently", domain.ErrConflict, intentID)
	}

	p.Outcome = model.Outcome{Kind: model.OutcomeRejected, Reason: reason}
	p.VerifiedBy = adminID
	p.UpdatedAt = time.Now()

	metrics.IncIntentVerified("rejected", p.IsRenewal)
	u.log.Info().Str("intent_id", intentID).Str("admin_id", adminID).Str("reason", reason).Msg("intent rejected")
	u.notify(p, reason)
	return p, nil
}

func (u *verificationUC) Message(ctx context.Context, adminID, intentID, text string) (*model.PaymentIntent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is required", domain.ErrInvalidArgument)
	}
	if err := u.payments.SetAdminMessage(ctx, nil, intentID, text); err != nil {
		return nil, err
	}
	u.log.Info().Str("intent_id", intentID).Str("admin_id", adminID).Msg("admin message sent")
	return u.payments.FindByID(ctx, nil, intentID)
}

func (u *verificationUC) SetStatus(ctx context.Context, adminID, intentID string, status model.Status, message string) (*model.PaymentIntent, error) {
	p, err := u.payments.FindByID(ctx, nil, intentID)
	if err != nil {
		return nil, err
	}

	switch status {
	case model.StatusCompleted, model.StatusRenewalApproved:
		if (status == model.StatusRenewalApproved) != p.IsRenewal {
			return nil, fmt.Errorf("%w: status %s does not apply to this flow", domain.ErrInvalidArgument, status)
		}
		if message != "" {
			if err := u.payments.SetAdminMessage(ctx, nil, intentID, message); err != nil {
				u.log.Warn().Err(err).Str("intent_id", intentID).Msg("set admin message failed")
			}
		}
		return u.Approve(ctx, adminID, intentID)

	case model.StatusFailed, model.StatusRejected:
		if (status == model.StatusRejected) != p.IsRenewal {
			return nil, fmt.Errorf("%w: status %s does not apply to this flow", domain.ErrInvalidArgument, status)
		}
		return u.Reject(ctx, adminID, intentID, message)

	case model.StatusInProcess, model.StatusPending, model.StatusRenewalPending:
		if (status == model.StatusRenewalPending) && !p.IsRenewal {
			return nil, fmt.Errorf("%w: status %s does not apply to this flow", domain.ErrInvalidArgument, status)
		}
		kind := model.OutcomeInProcess
		if status == model.StatusPending || status == model.StatusRenewalPending {
			kind = model.OutcomePending
		}
		ok, err := u.payments.SetOutcomeIfOpen(ctx, nil, intentID, kind)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: intent %s is already settled", domain.ErrConflict, intentID)
		}
		if message != "" {
			if err := u.payments.SetAdminMessage(ctx, nil, intentID, message); err != nil {
				u.log.Warn().Err(err).Str("intent_id", intentID).Msg("set admin message failed")
			}
		}
		return u.payments.FindByID(ctx, nil, intentID)
	}

	return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, string(status))
}

func (u *verificationUC) lock(ctx context.Context, intentID string) (func(), error) {
	token, err := u.locker.TryLock(ctx, "verify:"+intentID, verifyLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: another admin is acting on this intent", domain.ErrLocked)
	}
	return func() {
		if err := u.locker.Unlock(context.Background(), "verify:"+intentID, token); err != nil {
			u.log.Warn().Err(err).Str("intent_id", intentID).Msg("unlock failed")
		}
	}, nil
}

// notify sends the outcome email. Fire-and-forget: failures are logged and
// never reach the payment state machine.
func (u *verificationUC) notify(p *model.PaymentIntent, reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		usr, err := u.users.FindByID(ctx, nil, p.UserID)
		if err != nil {
			u.log.Warn().Err(err).Str("user_id", p.UserID).Msg("notify: user lookup failed")
			return
		}
		stratName := p.StrategyID
		if s, err := u.strategies.FindByID(ctx, nil, p.StrategyID); err == nil {
			stratName = s.Name
		}

		if p.Outcome.Kind == model.OutcomeSucceeded {
			err = u.mailer.SendPaymentCompleted(ctx, usr.Email, stratName, p.Payable)
		} else {
			err = u.mailer.SendPaymentRejected(ctx, usr.Email, stratName, reason)
		}
		if err != nil {
			u.log.Warn().Err(err).Str("intent_id", p.ID).Msg("notify: send failed")
		}
	}()
}
