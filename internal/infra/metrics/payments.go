package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		intentsCreated,
		proofsAttached,
		intentsVerified,
		intentsClientTerminated,
	)
}

var (
	intentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "Payment intents created, by initial status (pending/renewal_pending).",
		},
		[]string{"status"},
	)

	proofsAttached = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_proofs_attached_total",
			Help: "Proof-of-payment submissions that moved an intent to in_process.",
		},
	)

	intentsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_verified_total",
			Help: "Admin verification outcomes (approved/rejected), by renewal flag.",
		},
		[]string{"outcome", "renewal"},
	)

	intentsClientTerminated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_client_terminated_total",
			Help: "Intents settled from the client side (EXPIRED/CANCELLED).",
		},
		[]string{"code"},
	)
)

func IncIntentCreated(status string) {
	intentsCreated.WithLabelValues(norm(status)).Inc()
}

func IncProofAttached() { proofsAttached.Inc() }

func IncIntentVerified(outcome string, renewal bool) {
	intentsVerified.WithLabelValues(norm(outcome), strconv.FormatBool(renewal)).Inc()
}

func IncIntentClientTerminated(code string) {
	intentsClientTerminated.WithLabelValues(norm(code)).Inc()
}
