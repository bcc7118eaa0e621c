// File: internal/usecase/intake_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/infra/metrics"
)

// Compile-time check
var _ IntakeUseCase = (*intakeUC)(nil)

// CreateIntentInput is the draft a checkout session (or the API directly)
// submits for persistence.
type CreateIntentInput struct {
	UserID     string
	StrategyID string
	Plan       model.Plan
	Capital    float64
	Method     model.PaymentMethod
	Broker     *model.BrokerAccount
	IsRenewal  bool
}

type IntakeUseCase interface {
	// CreateIntent persists a new intent in pending (renewal_pending when
	// IsRenewal). Pure creation; no wallet mutation.
	CreateIntent(ctx context.Context, in CreateIntentInput) (*model.PaymentIntent, error)

	// AttachProof transitions pending -> in_process only, recording the
	// claimed external transaction id and the uploaded proof URL. Any other
	// source state is a conflict, which closes resubmission races on a
	// terminal intent.
	AttachProof(ctx context.Context, intentID, externalTxID, proofURL string) (*model.PaymentIntent, error)

	// MarkTerminalClientSide settles a still-open intent as failed with an
	// EXPIRED or CANCELLED code. Repeated calls after a terminal state are
	// no-ops, not errors.
	MarkTerminalClientSide(ctx context.Context, intentID string, code model.FailureCode) error

	Get(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	List(ctx context.Context, f repository.PaymentFilter) ([]*model.PaymentIntent, error)
}

type intakeUC struct {
	payments   repository.PaymentRepository
	strategies repository.StrategyRepository
	pricing    PricingUseCase
	cipher     adapter.SecretCipher
	log        *zerolog.Logger
}

func NewIntakeUseCase(payments repository.PaymentRepository, strategies repository.StrategyRepository, pricing PricingUseCase, cipher adapter.SecretCipher, logger *zerolog.Logger) *intakeUC {
	compLog := logger.With().Str("component", "IntakeUC").Logger()
	return &intakeUC{payments: payments, strategies: strategies, pricing: pricing, cipher: cipher, log: &compLog}
}

func (u *intakeUC) CreateIntent(ctx context.Context, in CreateIntentInput) (*model.PaymentIntent, error) {
	strat, err := u.strategies.FindByID(ctx, nil, in.StrategyID)
	if err != nil {
		return nil, err
	}
	if !strat.Enabled {
		return nil, fmt.Errorf("%w: strategy %s is disabled", domain.ErrInvalidArgument, strat.ID)
	}

	q, err := u.pricing.Quote(ctx, in.Plan, in.Capital)
	if err != nil {
		return nil, err
	}

	p, err := model.NewPaymentIntent(ulid.Make().String(), in.UserID, in.StrategyID, in.Plan, in.Capital, in.Method, in.Broker, in.IsRenewal)
	if err != nil {
		return nil, err
	}
	p.Payable = q.Payable
	p.FXRate = q.FXRate
	p.PayableINR = q.PayableINR

	if p.Broker != nil {
		enc, err := u.cipher.Encrypt(p.Broker.AccountPassword)
		if err != nil {
			return nil, fmt.Errorf("encrypt broker password: %w", err)
		}
		b := *p.Broker
		b.AccountPassword = enc
		p.Broker = &b
	}

	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	metrics.IncIntentCreated(string(p.Status()))
	u.log.Info().Str("intent_id", p.ID).Str("user_id", p.UserID).Float64("payable", p.Payable).Bool("renewal", p.IsRenewal).Msg("intent created")
	return p, nil
}

func (u *intakeUC) AttachProof(ctx context.Context, intentID, externalTxID, proofURL string) (*model.PaymentIntent, error) {
	if strings.TrimSpace(externalTxID) == "" {
		return nil, fmt.Errorf("%w: external transaction id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(proofURL) == "" {
		return nil, fmt.Errorf("%w: proof url is required", domain.ErrInvalidArgument)
	}

	ok, err := u.payments.AttachProofIfPending(ctx, nil, intentID, externalTxID, proofURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Row unchanged: either missing or already past pending.
		if _, err := u.payments.FindByID(ctx, nil, intentID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: proof already submitted or intent settled", domain.ErrConflict)
	}
	metrics.IncProofAttached()
	u.log.Info().Str("intent_id", intentID).Msg("proof attached")
	return u.payments.FindByID(ctx, nil, intentID)
}

func (u *intakeUC) MarkTerminalClientSide(ctx context.Context, intentID string, code model.FailureCode) error {
	if code != model.FailureExpired && code != model.FailureCancelled {
		return fmt.Errorf("%w: code must be EXPIRED or CANCELLED", domain.ErrInvalidArgument)
	}
	ok, err := u.payments.MarkFailedIfOpen(ctx, nil, intentID, code)
	if err != nil {
		return err
	}
	if !ok {
		// Idempotent: already terminal is fine, missing is not.
		if _, err := u.payments.FindByID(ctx, nil, intentID); err != nil {
			return err
		}
		return nil
	}
	metrics.IncIntentClientTerminated(string(code))
	u.log.Info().Str("intent_id", intentID).Str("code", string(code)).Msg("intent settled client-side")
	return nil
}

func (u *intakeUC) Get(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return u.payments.FindByID(ctx, nil, intentID)
}

func (u *intakeUC) List(ctx context.Context, f repository.PaymentFilter) ([]*model.PaymentIntent, error) {
	return u.payments.List(ctx, nil, f)
}
