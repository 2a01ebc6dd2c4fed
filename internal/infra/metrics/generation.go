package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(generationsTotal, generationLatencyMs)
}

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Image generations per provider by result (success/insufficient_credit/timeout/auth/rate_limit/generic).",
		},
		[]string{"provider", "result"},
	)

	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_ms",
			Help:    "Vendor call latency distribution in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 20000, 30000, 45000, 60000, 90000},
		},
		[]string{"provider", "success"},
	)
)

func IncGeneration(provider, result string) {
	generationsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func ObserveGenerationLatency(provider string, latencyMs int64, success bool) {
	generationLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
