package model

import "time"

// WalletEntryKind distinguishes top-ups from feature charges.
type WalletEntryKind string

const (
	EntryDeposit WalletEntryKind = "deposit"
	EntryCharge  WalletEntryKind = "charge"
)

// WalletEntry is one completed ledger movement. The entry list is the source
// of truth; the wallet balance is a projection over it.
type WalletEntry struct {
	ID        string
	UserID    string
	Kind      WalletEntryKind
	Amount    float64
	PaymentID string // originating intent, empty for charges
	Ref       string // free-form reference for charges
	CreatedAt time.Time
}

// Wallet is the cached running balance for one user.
type Wallet struct {
	UserID    string
	Balance   float64
	UpdatedAt time.Time
}

// BalanceFrom recomputes the balance projection from the entry list:
// deposits minus charges, clamped at zero the same way Debit clamps.
func BalanceFrom(entries []*WalletEntry) float64 {
	var bal float64
	for _, e := range entries {
		switch e.Kind {
		case EntryDeposit:
			bal += e.Amount
		case EntryCharge:
			bal -= e.Amount
			if bal < 0 {
				bal = 0
			}
		}
	}
	return RoundCents(bal)
}
