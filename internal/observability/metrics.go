package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	evaluationsTotal          *prometheus.CounterVec
	evaluationSeconds         prometheus.Histogram
	validationFailuresTotal   prometheus.Counter
	engineFaultsTotal         prometheus.Counter
	gradeImportedRowsTotal    prometheus.Counter
	summaryCacheRequestsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading
// service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_evaluations_total",
			Help: "Total number of grading-model evaluations, by resulting status.",
		}, []string{"status"})

		evaluationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_evaluation_seconds",
			Help:    "Latency distribution of single-student evaluations.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		})

		validationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_validation_failures_total",
			Help: "Total number of grading graphs rejected by the structural validator.",
		})

		engineFaultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_engine_faults_total",
			Help: "Total number of engine faults raised while evaluating stored graphs.",
		})

		gradeImportedRowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_imported_rows_total",
			Help: "Total number of task grade rows ingested via CSV upload.",
		})

		summaryCacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_summary_cache_requests_total",
			Help: "Course summary lookups, by cache outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			evaluationsTotal,
			evaluationSeconds,
			validationFailuresTotal,
			engineFaultsTotal,
			gradeImportedRowsTotal,
			summaryCacheRequestsTotal,
		)
	})
}

// Evaluations exposes the per-status evaluation counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationLatency exposes the evaluation latency histogram.
func EvaluationLatency() prometheus.Histogram {
	RegisterMetrics()
	return evaluationSeconds
}

// ValidationFailures exposes the rejected-graph counter.
func ValidationFailures() prometheus.Counter {
	RegisterMetrics()
	return validationFailuresTotal
}

// EngineFaults exposes the engine fault counter.
func EngineFaults() prometheus.Counter {
	RegisterMetrics()
	return engineFaultsTotal
}

// ImportedRows exposes the CSV import row counter.
func ImportedRows() prometheus.Counter {
	RegisterMetrics()
	return gradeImportedRowsTotal
}

// SummaryCacheRequests exposes the summary cache outcome counter.
func SummaryCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return summaryCacheRequestsTotal
}
