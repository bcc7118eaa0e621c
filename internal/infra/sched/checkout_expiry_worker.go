package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/infra/metrics"
	"copytrade-subscription/internal/usecase"
)

// sweepGrace keeps the server-side sweep behind the client-side expiry path
// so a live client gets to settle its own session first.
const sweepGrace = 5 * time.Minute

const sweepBatchSize = 100

// CheckoutExpiryWorker settles abandoned pending intents whose checkout
// session ran out while the client was gone: the crashed-browser twin of the
// in-request expiry path. Only intents that never got a proof are swept;
// in_process intents sit in the admin verification queue with no deadline.
// MarkTerminalClientSide is idempotent, so the worker and a late-returning
// client cannot double-settle.
type CheckoutExpiryWorker struct {
	interval time.Duration
	payments repository.PaymentRepository
	intakeUC usecase.IntakeUseCase
	log      *zerolog.Logger
}

func NewCheckoutExpiryWorker(interval time.Duration, payments repository.PaymentRepository, intakeUC usecase.IntakeUseCase, logger *zerolog.Logger) *CheckoutExpiryWorker {
	compLog := logger.With().Str("component", "CheckoutExpiryWorker").Logger()
	return &CheckoutExpiryWorker{
		interval: interval,
		payments: payments,
		intakeUC: intakeUC,
		log:      &compLog,
	}
}

func (w *CheckoutExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting checkout expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping checkout expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CheckoutExpiryWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-(model.CheckoutTTL + sweepGrace))
	stale, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep query failed")
		return
	}
	var settled int
	for _, p := range stale {
		if err := w.intakeUC.MarkTerminalClientSide(ctx, p.ID, model.FailureExpired); err != nil {
			w.log.Error().Err(err).Str("intent_id", p.ID).Msg("expiry settle failed")
			continue
		}
		metrics.IncCheckoutEnded("swept")
		settled++
	}
	if settled > 0 {
		w.log.Info().Int("count", settled).Msg("stale pending intents settled")
	}
}
