// File: internal/usecase/running_strategy_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ RunningStrategyUseCase = (*runningStrategyUC)(nil)

// RunningStrategyUseCase manages activated subscriptions and their
// execution-health status. Health is admin-set and independent of the
// payment lifecycle.
type RunningStrategyUseCase interface {
	ListByUser(ctx context.Context, userID string) ([]*model.RunningStrategy, error)
	ListAll(ctx context.Context) ([]*model.RunningStrategy, error)

	// SetExecutionStatus applies an admin health edit, validated against the
	// shared allow-list.
	SetExecutionStatus(ctx context.Context, adminID, runningID, status string) (*model.RunningStrategy, error)

	// RequestModification records a user's proposed broker-account change,
	// awaiting admin re-approval.
	RequestModification(ctx context.Context, userID, runningID string, proposed model.BrokerAccount) (*model.ModificationRequest, error)

	// ResolveModification settles a pending request. Approval swaps the
	// broker details in and resets health to in-process for re-verification.
	ResolveModification(ctx context.Context, adminID, requestID string, approve bool) error

	ListModifications(ctx context.Context, status model.ModificationStatus) ([]*model.ModificationRequest, error)
}

type runningStrategyUC struct {
	running       repository.RunningStrategyRepository
	modifications repository.ModificationRequestRepository
	cipher        adapter.SecretCipher
	log           *zerolog.Logger
}

func NewRunningStrategyUseCase(running repository.RunningStrategyRepository, modifications repository.ModificationRequestRepository, cipher adapter.SecretCipher, logger *zerolog.Logger) *runningStrategyUC {
	compLog := logger.With().Str("component", "RunningStrategyUC").Logger()
	return &runningStrategyUC{running: running, modifications: modifications, cipher: cipher, log: &compLog}
}

func (u *runningStrategyUC) ListByUser(ctx context.Context, userID string) ([]*model.RunningStrategy, error) {
	return u.running.ListByUser(ctx, nil, userID)
}

func (u *runningStrategyUC) ListAll(ctx context.Context) ([]*model.RunningStrategy, error) {
	return u.running.ListAll(ctx, nil)
}

func (u *runningStrategyUC) SetExecutionStatus(ctx context.Context, adminID, runningID, status string) (*model.RunningStrategy, error) {
	st, err := model.ParseExecutionStatus(status)
	if err != nil {
		return nil, err
	}
	ok, err := u.running.SetExecutionStatus(ctx, nil, runningID, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.log.Info().Str("running_id", runningID).Str("admin_id", adminID).Str("status", string(st)).Msg("execution status updated")
	return u.running.FindByID(ctx, nil, runningID)
}

func (u *runningStrategyUC) RequestModification(ctx context.Context, userID, runningID string, proposed model.BrokerAccount) (*model.ModificationRequest, error) {
	if err := proposed.Validate(); err != nil {
		return nil, err
	}
	rs, err := u.running.FindByID(ctx, nil, runningID)
	if err != nil {
		return nil, err
	}
	if rs.UserID != userID {
		return nil, domain.ErrUnauthorized
	}

	enc, err := u.cipher.Encrypt(proposed.AccountPassword)
	if err != nil {
		return nil, fmt.Errorf("encrypt broker password: %w", err)
	}
	proposed.AccountPassword = enc

	m := &model.ModificationRequest{
		ID:                uuid.NewString(),
		RunningStrategyID: runningID,
		UserID:            userID,
		Proposed:          proposed,
		Status:            model.ModificationPending,
		CreatedAt:         time.Now(),
	}
	if err := u.modifications.Save(ctx, nil, m); err != nil {
		return nil, err
	}
	u.log.Info().Str("running_id", runningID).Str("request_id", m.ID).Msg("modification requested")
	return m, nil
}

func (u *runningStrategyUC) ResolveModification(ctx context.Context, adminID, requestID string, approve bool) error {
	m, err := u.modifications.FindByID(ctx, nil, requestID)
	if err != nil {
		return err
	}

	status := model.ModificationRejected
	if approve {
		status = model.ModificationApproved
	}
	ok, err := u.modifications.Resolve(ctx, nil, requestID, status, adminID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: modification request %s is already resolved", domain.ErrConflict, requestID)
	}

	if approve {
		if err := u.running.UpdateBroker(ctx, nil, m.RunningStrategyID, m.Proposed); err != nil {
			return err
		}
		// New credentials need re-verification by the execution side.
		if _, err := u.running.SetExecutionStatus(ctx, nil, m.RunningStrategyID, model.ExecInProcess); err != nil {
			return err
		}
	}
	u.log.Info().Str("request_id", requestID).Str("admin_id", adminID).Bool("approved", approve).Msg("modification resolved")
	return nil
}

func (u *runningStrategyUC) ListModifications(ctx context.Context, status model.ModificationStatus) ([]*model.ModificationRequest, error) {
	return u.modifications.ListByStatus(ctx, nil, status)
}
