// Package metrics exposes Prometheus collectors for the assessment engine and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can coexist in tests.
// All recording methods are no-ops on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestCounter    *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	sessionsStarted   *prometheus.CounterVec
	sessionsCompleted *prometheus.CounterVec
	answersSubmitted  *prometheus.CounterVec
	storageFailures   *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	scores            *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		sessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_sessions_started_total",
				Help: "Assessment sessions started",
			},
			[]string{"assessment_id"},
		),
		sessionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_sessions_completed_total",
				Help: "Assessment sessions finished, by final status and outcome",
			},
			[]string{"assessment_id", "status", "passed"},
		),
		answersSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_answers_submitted_total",
				Help: "Answers submitted, by question type",
			},
			[]string{"question_type"},
		),
		storageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_storage_failures_total",
				Help: "Persistence operations that failed and were skipped",
			},
			[]string{"operation"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "assessment_active_sessions",
				Help: "Sessions currently in progress",
			},
		),
		scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assessment_score_percentage",
				Help:    "Distribution of final percentages",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"assessment_id"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCounter,
		m.requestDuration,
		m.sessionsStarted,
		m.sessionsCompleted,
		m.answersSubmitted,
		m.storageFailures,
		m.activeSessions,
		m.scores,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SessionStarted(assessmentID string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(assessmentID).Inc()
	m.activeSessions.Inc()
}

// SessionResumed counts a session restored from storage as active again.
func (m *Metrics) SessionResumed() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionCompleted(assessmentID, status string, passed bool, percentage int) {
	if m == nil {
		return
	}
	m.sessionsCompleted.WithLabelValues(assessmentID, status, strconv.FormatBool(passed)).Inc()
	m.scores.WithLabelValues(assessmentID).Observe(float64(percentage))
	m.activeSessions.Dec()
}

// SessionSuspended is called when an engine shuts down with a session still in progress.
func (m *Metrics) SessionSuspended() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) AnswerSubmitted(questionType string) {
	if m == nil {
		return
	}
	m.answersSubmitted.WithLabelValues(questionType).Inc()
}

func (m *Metrics) StorageFailure(operation string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(operation).Inc()
}

// Middleware records request counts and latencies per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.requestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.requestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
