package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := New()

	m.SessionStarted("module1_assessment")
	m.SessionStarted("module1_assessment")
	m.AnswerSubmitted("multiple_choice")
	m.SessionCompleted("module1_assessment", "completed", true, 100)
	m.StorageFailure("save_history")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("module1_assessment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsCompleted.WithLabelValues("module1_assessment", "completed", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answersSubmitted.WithLabelValues("multiple_choice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageFailures.WithLabelValues("save_history")))

	m.SessionSuspended()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted("a")
		m.SessionResumed()
		m.SessionCompleted("a", "completed", false, 0)
		m.SessionSuspended()
		m.AnswerSubmitted("essay")
		m.StorageFailure("save_session")
	})
}

func TestMetrics_HTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{endpoint="/ping",method="GET",status="200"} 1`), body)
	assert.Contains(t, body, "assessment_active_sessions")
}
