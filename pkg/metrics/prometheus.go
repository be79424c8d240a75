package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes decision-loop counters via Prometheus.
type Recorder struct {
	decisions  *prometheus.CounterVec
	intents    *prometheus.CounterVec
	cycleSkips *prometheus.CounterVec
	errors     *prometheus.CounterVec
	lastPrice  *prometheus.GaugeVec
	latency    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_decisions_total",
				Help: "Decisions emitted, by direction and veto reason",
			},
			[]string{"symbol", "direction", "veto"},
		),
		intents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_order_intents_total",
				Help: "Order intents emitted after the risk guard",
			},
			[]string{"symbol", "side"},
		),
		cycleSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_cycle_skips_total",
				Help: "Evaluation cycles skipped, by cause",
			},
			[]string{"symbol", "cause"},
		),
		errors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradegate_last_price",
				Help: "Last bar close observed for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradegate_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records an emitted decision.
func (r *Recorder) RecordDecision(symbol string, direction int, vetoReason string) {
	if vetoReason == "" {
		vetoReason = "none"
	}
	r.decisions.WithLabelValues(symbol, strconv.Itoa(direction), vetoReason).Inc()
}

// RecordIntent records an order intent that passed the guard.
func (r *Recorder) RecordIntent(symbol, side string) {
	r.intents.WithLabelValues(symbol, side).Inc()
}

// RecordCycleSkip records a skipped evaluation cycle.
func (r *Recorder) RecordCycleSkip(symbol, cause string) {
	r.cycleSkips.WithLabelValues(symbol, cause).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
