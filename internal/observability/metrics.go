package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	requestsTotal      *prometheus.CounterVec
	latencySeconds     *prometheus.HistogramVec
	storageOperations  *prometheus.CounterVec
	migrationsTotal    *prometheus.CounterVec
	lessonCompletions  *prometheus.CounterVec
	analyticsRequests  *prometheus.CounterVec
	draftAutosaveTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekeep_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursekeep_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"})

		storageOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekeep_storage_operations_total",
			Help: "Storage adapter operations by kind and outcome.",
		}, []string{"op", "result"})

		migrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekeep_migrations_total",
			Help: "Data migration runs by outcome.",
		}, []string{"result"})

		lessonCompletions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekeep_lesson_completions_total",
			Help: "Lesson completion toggles by resulting state.",
		}, []string{"state"})

		analyticsRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekeep_analytics_requests_total",
			Help: "Analytics summary requests by cache outcome.",
		}, []string{"cache"})

		draftAutosaveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursekeep_draft_autosaves_total",
			Help: "Draft autosave ticks by outcome.",
		}, []string{"result"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			storageOperations,
			migrationsTotal,
			lessonCompletions,
			analyticsRequests,
			draftAutosaveTotal,
		)
	})
}

// Requests exposes the API request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the API latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// StorageOperations exposes the storage adapter counter.
func StorageOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return storageOperations
}

// Migrations exposes the migration run counter.
func Migrations() *prometheus.CounterVec {
	RegisterMetrics()
	return migrationsTotal
}

// LessonCompletions exposes the completion toggle counter.
func LessonCompletions() *prometheus.CounterVec {
	RegisterMetrics()
	return lessonCompletions
}

// AnalyticsRequests exposes the analytics cache counter.
func AnalyticsRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return analyticsRequests
}

// DraftAutosaves exposes the autosave counter.
func DraftAutosaves() *prometheus.CounterVec {
	RegisterMetrics()
	return draftAutosaveTotal
}
