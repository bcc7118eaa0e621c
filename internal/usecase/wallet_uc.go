// File: internal/usecase/wallet_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/domain"
	"copytrade-subscription/internal/domain/model"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/infra/metrics"
)

// Compile-time check
var _ WalletUseCase = (*walletUC)(nil)

// WalletUseCase exposes the per-user ledger. The entry list is the source of
// truth; the balance row is a projection over it and can be rebuilt.
type WalletUseCase interface {
	Balance(ctx context.Context, userID string) (float64, error)
	Entries(ctx context.Context, userID string) ([]*model.WalletEntry, error)

	// Credit appends a deposit outside the approve path (manual adjustments).
	Credit(ctx context.Context, userID string, amount float64, paymentID string) (float64, error)

	// Debit charges the wallet, clamping the balance at zero rather than
	// rejecting the shortfall. The clamp is recorded behavior pending product
	// sign-off; clamped debits are logged and counted.
	Debit(ctx context.Context, userID string, amount float64, ref string) (float64, error)

	// Recompute rebuilds the balance projection from the entry list.
	Recompute(ctx context.Context, userID string) (float64, error)
}

type walletUC struct {
	wallets repository.WalletRepository
	log     *zerolog.Logger
}

func NewWalletUseCase(wallets repository.WalletRepository, logger *zerolog.Logger) *walletUC {
	compLog := logger.With().Str("component", "WalletUC").Logger()
	return &walletUC{wallets: wallets, log: &compLog}
}

func (u *walletUC) Balance(ctx context.Context, userID string) (float64, error) {
	bal, err := u.wallets.Balance(ctx, nil, userID)
	if err == domain.ErrNotFound {
		return 0, nil
	}
	return bal, err
}

func (u *walletUC) Entries(ctx context.Context, userID string) ([]*model.WalletEntry, error) {
	return u.wallets.Entries(ctx, nil, userID)
}

func (u *walletUC) Credit(ctx context.Context, userID string, amount float64, paymentID string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive", domain.ErrInvalidArgument)
	}
	entry := &model.WalletEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      model.EntryDeposit,
		Amount:    model.RoundCents(amount),
		PaymentID: paymentID,
		CreatedAt: time.Now(),
	}
	bal, err := u.wallets.Credit(ctx, nil, entry)
	if err != nil {
		return 0, err
	}
	metrics.AddWalletCredited(entry.Amount)
	return bal, nil
}

func (u *walletUC) Debit(ctx context.Context, userID string, amount float64, ref string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", domain.ErrInvalidArgument)
	}
	entry := &model.WalletEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      model.EntryCharge,
		Amount:    model.RoundCents(amount),
		Ref:       ref,
		CreatedAt: time.Now(),
	}
	bal, clamped, err := u.wallets.Debit(ctx, nil, entry)
	if err != nil {
		return 0, err
	}
	metrics.AddWalletDebited(entry.Amount)
	if clamped {
		metrics.IncWalletDebitClamped()
		u.log.Warn().Str("user_id", userID).Float64("amount", entry.Amount).Str("ref", ref).Msg("wallet debit clamped at zero")
	}
	return bal, nil
}

func (u *walletUC) Recompute(ctx context.Context, userID string) (float64, error) {
	entries, err := u.wallets.Entries(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	bal := model.BalanceFrom(entries)
	if err := u.wallets.SetBalance(ctx, nil, userID, bal); err != nil {
		return 0, err
	}
	return bal, nil
}
