package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerHTTPOnce  sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiRequestSeconds *prometheus.HistogramVec
	apiRequestErrors  *prometheus.CounterVec
)

// RegisterHTTPMetrics initialises the request-level Prometheus collectors.
func RegisterHTTPMetrics() {
	registerHTTPOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_api_requests_total",
			Help: "Total number of API requests, by method, route, and status.",
		}, []string{"method", "route", "status"})

		apiRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_api_request_seconds",
			Help:    "Latency distribution of API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"})

		apiRequestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_api_request_errors_total",
			Help: "Total number of API requests that ended in a 4xx or 5xx status.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(apiRequestsTotal, apiRequestSeconds, apiRequestErrors)
	})
}

// Requests exposes the per-route request counter.
func Requests() *prometheus.CounterVec {
	RegisterHTTPMetrics()
	return apiRequestsTotal
}

// RequestLatency exposes the per-route latency histogram.
func RequestLatency() *prometheus.HistogramVec {
	RegisterHTTPMetrics()
	return apiRequestSeconds
}

// RequestErrors exposes the per-route error counter.
func RequestErrors() *prometheus.CounterVec {
	RegisterHTTPMetrics()
	return apiRequestErrors
}
