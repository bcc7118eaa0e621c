package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		walletCredited,
		walletDebited,
		walletDebitClamped,
	)
}

var (
	walletCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_credited_total",
			Help: "Total amount credited to wallets (USD).",
		},
	)

	walletDebited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_debited_total",
			Help: "Total amount charged against wallets (USD).",
		},
	)

	walletDebitClamped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_debit_clamped_total",
			Help: "Debits that would have gone negative and were clamped at zero.",
		},
	)
)

func AddWalletCredited(amount float64) { walletCredited.Add(amount) }
func AddWalletDebited(amount float64)  { walletDebited.Add(amount) }
func IncWalletDebitClamped()           { walletDebitClamped.Inc() }
