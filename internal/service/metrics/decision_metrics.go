package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradecore",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of decision API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by decision API endpoint",
		},
		[]string{"endpoint"},
	)

	PosteriorMean = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tradecore",
			Subsystem: "router",
			Name:      "posterior_mean",
			Help:      "Current posterior mean reward per policy",
		},
		[]string{"policy"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, PosteriorMean)
	})
}
