// Package metrics registers the executor's prometheus collectors and
// serves them over /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals produced per strategy and kind"},
		[]string{"strategy", "token", "kind"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted per token and side"},
		[]string{"token", "side"},
	)
	AnalyzeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyze_duration_seconds",
			Help:    "Wall time of a single strategy analysis",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, OrdersTotal, AnalyzeDuration)
}

// Serve exposes /metrics on addr in the background and returns the server
// so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
