package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
)

const reminderBatchSize = 100

// RenewalReminderWorker mails users whose entitlement window closes within
// the lead time. Each intent is reminded at most once; a failed send is
// retried on the next tick because the sent marker is only written after a
// successful delivery.
type RenewalReminderWorker struct {
	interval   time.Duration
	leadTime   time.Duration
	payments   repository.PaymentRepository
	users      repository.UserRepository
	strategies repository.StrategyRepository
	mailer     adapter.Mailer
	log        *zerolog.Logger
}

func NewRenewalReminderWorker(
	interval, leadTime time.Duration,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	strategies repository.StrategyRepository,
	mailer adapter.Mailer,
	logger *zerolog.Logger,
) *RenewalReminderWorker {
	compLog := logger.With().Str("component", "RenewalReminderWorker").Logger()
	return &RenewalReminderWorker{
		interval:   interval,
		leadTime:   leadTime,
		payments:   payments,
		users:      users,
		strategies: strategies,
		mailer:     mailer,
		log:        &compLog,
	}
}

func (w *RenewalReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("lead_time", w.leadTime).Msg("starting renewal reminder worker")
	// Once on startup, then on every tick.
	w.remind(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping renewal reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.remind(ctx)
		}
	}
}

func (w *RenewalReminderWorker) remind(ctx context.Context) {
	now := time.Now()
	due, err := w.payments.ListRenewalsExpiring(ctx, nil, now, now.Add(w.leadTime), reminderBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reminder query failed")
		return
	}
	for _, p := range due {
		if p.Outcome.ApprovedAt == nil {
			continue
		}
		u, err := w.users.FindByID(ctx, nil, p.UserID)
		if err != nil {
			w.log.Error().Err(err).Str("user_id", p.UserID).Msg("reminder user lookup failed")
			continue
		}
		strategyName := p.StrategyID
		if strat, err := w.strategies.FindByID(ctx, nil, p.StrategyID); err == nil {
			strategyName = strat.Name
		}
		expiresAt := model.RenewalExpiresAt(*p.Outcome.ApprovedAt)
		if err := w.mailer.SendRenewalReminder(ctx, u.Email, strategyName, expiresAt); err != nil {
			w.log.Error().Err(err).Str("intent_id", p.ID).Msg("reminder send failed")
			continue
		}
		if err := w.payments.MarkReminderSent(ctx, nil, p.ID, now); err != nil {
			w.log.Error().Err(err).Str("intent_id", p.ID).Msg("reminder marker write failed")
			continue
		}
		w.log.Info().Str("intent_id", p.ID).Time("expires_at", expiresAt).Msg("renewal reminder sent")
	}
}
