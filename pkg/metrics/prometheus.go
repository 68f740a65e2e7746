package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal      *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	ordersTotal     *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	sessionRunning  prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_scans_total",
				Help: "Total number of scan ticks by outcome",
			},
			[]string{"outcome"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_consensus_signals_total",
				Help: "Consensus decisions by symbol and action",
			},
			[]string{"symbol", "action"},
		),
		ordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_orders_total",
				Help: "Orders by symbol and status",
			},
			[]string{"symbol", "status"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_risk_rejections_total",
				Help: "Risk gate rejections by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradedesk_gateway_queue_depth",
				Help: "Pending requests in the execution gateway queue",
			},
		),
		sessionRunning: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradedesk_session_running",
				Help: "1 while a bot session is RUNNING",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradedesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records a scan tick outcome: completed, skipped_closed,
// skipped_busy, or failed.
func (r *Recorder) RecordScan(outcome string) {
	r.scansTotal.WithLabelValues(outcome).Inc()
}

// RecordConsensus records a consensus decision.
func (r *Recorder) RecordConsensus(symbol, action string) {
	r.signalsTotal.WithLabelValues(symbol, action).Inc()
}

// RecordOrder records an order submission outcome.
func (r *Recorder) RecordOrder(symbol, status string) {
	r.ordersTotal.WithLabelValues(symbol, status).Inc()
}

// RecordRiskRejection records a hard risk rejection.
func (r *Recorder) RecordRiskRejection(reason string) {
	r.rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordQueueDepth records the current gateway queue depth.
func (r *Recorder) RecordQueueDepth(n int) {
	r.queueDepth.Set(float64(n))
}

// RecordSessionRunning flips the running gauge.
func (r *Recorder) RecordSessionRunning(running bool) {
	if running {
		r.sessionRunning.Set(1)
		return
	}
	r.sessionRunning.Set(0)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
