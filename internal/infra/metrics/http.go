package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var httpRequestLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_latency_ms",
		Help:    "HTTP request latency distribution in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
	},
	[]string{"method", "route", "status"},
)

func ObserveHTTPRequest(method, route string, status int, latencyMs float64) {
	httpRequestLatencyMs.WithLabelValues(method, route, strconv.Itoa(status)).Observe(latencyMs)
}
