package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisionsTotal *prometheus.CounterVec
	holdsTotal     *prometheus.CounterVec
	ordersTotal    *prometheus.CounterVec
	rewardSum      *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	slippage       *prometheus.HistogramVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_decisions_total",
				Help: "Total number of routing decisions per policy",
			},
			[]string{"policy"},
		),
		holdsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_holds_total",
				Help: "Total number of executions degraded to hold, by constraint kind",
			},
			[]string{"kind"},
		),
		ordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_orders_total",
				Help: "Total number of synthesized orders",
			},
			[]string{"symbol", "order_type"},
		),
		rewardSum: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_reward_sum",
				Help: "Cumulative absolute reward attributed per policy",
			},
			[]string{"policy", "sign"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		slippage: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradecore_realized_slippage_bps",
				Help:    "Realized slippage per fill in basis points",
				Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradecore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records one routing decision for a policy.
func (r *Recorder) RecordDecision(policyID string) {
	r.decisionsTotal.WithLabelValues(policyID).Inc()
}

// RecordHold records an execution degraded to hold.
func (r *Recorder) RecordHold(kind string) {
	r.holdsTotal.WithLabelValues(kind).Inc()
}

// RecordOrder records one synthesized order.
func (r *Recorder) RecordOrder(symbol, orderType string) {
	r.ordersTotal.WithLabelValues(symbol, orderType).Inc()
}

// RecordReward records an observed reward for a policy.
func (r *Recorder) RecordReward(policyID string, reward float64) {
	sign := "positive"
	if reward < 0 {
		sign = "negative"
		reward = -reward
	}
	r.rewardSum.WithLabelValues(policyID, sign).Add(reward)
}

// RecordSlippage records realized slippage for a fill.
func (r *Recorder) RecordSlippage(symbol string, bps float64) {
	if bps < 0 {
		bps = -bps
	}
	r.slippage.WithLabelValues(symbol).Observe(bps)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
