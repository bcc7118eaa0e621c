package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(rateFetches)
}

var rateFetches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fx_rate_fetches_total",
		Help: "FX rate lookups, by source (live/cached/fallback).",
	},
	[]string{"source"},
)

func IncRateFetch(source string) { rateFetches.WithLabelValues(norm(source)).Inc() }
