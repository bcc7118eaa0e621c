package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutStarted,
		checkoutEnded,
	)
}

var (
	checkoutStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_sessions_started_total",
			Help: "Checkout wizard sessions started.",
		},
	)

	checkoutEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_ended_total",
			Help: "Checkout sessions ended, by reason (submitted/cancelled/expired).",
		},
		[]string{"reason"},
	)
)

func IncCheckoutStarted()            { checkoutStarted.Inc() }
func IncCheckoutEnded(reason string) { checkoutEnded.WithLabelValues(norm(reason)).Inc() }
