package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_resolutions_total",
			Help: "Total number of query resolutions by route and outcome.",
		},
		[]string{"route", "outcome"},
	)
	resolutionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_resolution_duration_seconds",
			Help:    "End-to-end resolution latency by route.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"route"},
	)
	validatorRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_validator_rejections_total",
			Help: "Total number of SQL candidates rejected by the validator.",
		},
	)
	generationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_generation_retries_total",
			Help: "Total number of SQL regeneration attempts after a rejection.",
		},
	)
	sqlExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_sql_execution_duration_seconds",
			Help:    "SQL execution latency against the relational engine.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	retrievalSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_retrieval_duration_seconds",
			Help:    "Similarity search latency against the vector store.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	chartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_charts_rendered_total",
			Help: "Total number of charts rendered by chart type.",
		},
		[]string{"type"},
	)
	chartErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_chart_errors_total",
			Help: "Total number of non-fatal visualization failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		resolutionsTotal,
		resolutionDurationSeconds,
		validatorRejectionsTotal,
		generationRetriesTotal,
		sqlExecutionSeconds,
		retrievalSeconds,
		chartsRenderedTotal,
		chartErrorsTotal,
	)
}

func ObserveResolution(route, outcome string, elapsed time.Duration) {
	resolutionsTotal.WithLabelValues(route, outcome).Inc()
	resolutionDurationSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncrementValidatorRejection() {
	validatorRejectionsTotal.Inc()
}

func IncrementGenerationRetry() {
	generationRetriesTotal.Inc()
}

func ObserveSQLExecution(elapsed time.Duration) {
	sqlExecutionSeconds.Observe(elapsed.Seconds())
}

func ObserveRetrieval(elapsed time.Duration) {
	retrievalSeconds.Observe(elapsed.Seconds())
}

func IncrementChartRendered(chartType string) {
	chartsRenderedTotal.WithLabelValues(chartType).Inc()
}

func IncrementChartError() {
	chartErrorsTotal.Inc()
}
