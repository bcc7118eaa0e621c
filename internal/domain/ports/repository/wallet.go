package repository

import (
	"context"

	"copytrade-subscription/internal/domain/model"
)

// WalletRepository persists wallet entries and the cached balance projection.
// Credit and Debit apply the balance change atomically in SQL (never
// read-modify-write in application code) so concurrent approvals for the same
// user cannot lose updates.
type WalletRepository interface {
	// Credit appends a deposit entry and adds its amount to the balance.
	// Returns the new balance.
	Credit(ctx context.Context, qx Tx, entry *model.WalletEntry) (float64, error)

	// Debit appends a charge entry and subtracts its amount, clamping the
	// balance at zero. Returns the new balance and whether clamping occurred.
	Debit(ctx context.Context, qx Tx, entry *model.WalletEntry) (float64, bool, error)

	Balance(ctx context.Context, qx Tx, userID string) (float64, error)
	Entries(ctx context.Context, qx Tx, userID string) ([]*model.WalletEntry, error)

	// SetBalance overwrites the projection (used only by recompute repair).
	SetBalance(ctx context.Context, qx Tx, userID string, balance float64) error
}
