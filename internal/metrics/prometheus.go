package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports swap-core metrics through a prometheus registry.
type PrometheusRecorder struct {
	swapCounter     *prometheus.CounterVec
	swapDuration    *prometheus.HistogramVec
	rpcLatency      *prometheus.HistogramVec
	confirmDuration *prometheus.HistogramVec
	feeCounter      *prometheus.CounterVec
}

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &PrometheusRecorder{
		swapCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swapcore",
				Name:      "swaps_total",
				Help:      "Completed executeSwap calls by venue and outcome",
			},
			[]string{"venue", "status"},
		),
		swapDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swapcore",
				Name:      "swap_duration_seconds",
				Help:      "End-to-end swap duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"venue", "status"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swapcore",
				Name:      "rpc_latency_seconds",
				Help:      "Solana RPC round-trip latency by method",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		confirmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swapcore",
				Name:      "confirmation_duration_seconds",
				Help:      "Time from broadcast to terminal confirmation state",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"state"},
		),
		feeCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swapcore",
				Name:      "fee_collections_total",
				Help:      "Platform fee collection attempts by outcome",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		r.swapCounter,
		r.swapDuration,
		r.rpcLatency,
		r.confirmDuration,
		r.feeCounter,
	)
	return r
}

func (r *PrometheusRecorder) RecordSwap(venue, status string, duration time.Duration) {
	r.swapCounter.WithLabelValues(venue, status).Inc()
	r.swapDuration.WithLabelValues(venue, status).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordRPCLatency(method string, duration time.Duration) {
	r.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordConfirmation(state string, duration time.Duration) {
	r.confirmDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordFeeCollection(status string) {
	r.feeCounter.WithLabelValues(status).Inc()
}
