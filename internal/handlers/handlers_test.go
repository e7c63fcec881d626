package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/SAP-F-2025/ec0249-assessment/internal/config"
	"github.com/SAP-F-2025/ec0249-assessment/internal/metrics"
	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/SAP-F-2025/ec0249-assessment/internal/services"
	"github.com/SAP-F-2025/ec0249-assessment/internal/utils"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router  *gin.Engine
	manager *services.SessionManager
	logs    *bytes.Buffer
}

func newTestServer(t *testing.T, parser TokenParser) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, err := catalog.Default(nil)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(logs, nil)))
	manager := services.NewSessionManager(services.EngineConfig{
		Catalog:   c,
		Logger:    logger.Slog(),
		Scheduler: services.NewManualScheduler(),
		Clock:     services.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		Metrics:   metrics.New(),
	})
	t.Cleanup(func() { _ = manager.Close(context.Background()) })

	router := gin.New()
	NewHandlerManager(HandlerConfig{
		Manager:     manager,
		Metrics:     metrics.New(),
		TokenParser: parser,
		Logger:      logger,
	}).SetupRoutes(router)

	return &testServer{router: router, manager: manager, logs: logs}
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}
	reader := bytes.NewReader(data)

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(5), health["assessments"])

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRequestIDReachesServiceLogs(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments/module1_assessment/start", nil)
	req.Header.Set(userIDHeader, "ana")
	req.Header.Set(utils.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(utils.RequestIDHeader))

	var operationLine string
	for _, line := range strings.Split(s.logs.String(), "\n") {
		if strings.Contains(line, "operation=start_assessment") {
			operationLine = line
		}
	}
	require.NotEmpty(t, operationLine, s.logs.String())
	assert.Contains(t, operationLine, "request_id=req-42")
}

func TestListAssessments(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/v1/assessments", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[AssessmentListResponse](t, w)
	assert.Equal(t, 5, list.Total)
	assert.Equal(t, "1.0", list.Version)

	w = s.do(t, http.MethodGet, "/api/v1/assessments?element=E0875", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[AssessmentListResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "module2_assessment", list.Assessments[0].ID)
	assert.Equal(t, []string{"module1_assessment"}, list.Assessments[0].Prerequisites)

	w = s.do(t, http.MethodGet, "/api/v1/assessments/final_certification", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[AssessmentSummary](t, w)
	assert.Equal(t, 6, summary.QuestionCount)
	assert.Equal(t, models.ScoringCompetency, summary.Settings.ScoringMethod)
	assert.NotContains(t, w.Body.String(), "correct_index")

	w = s.do(t, http.MethodGet, "/api/v1/assessments/nope", "ana", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequiresUser(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/v1/sessions/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	off := false

	w := s.do(t, http.MethodPost, "/api/v1/assessments/module2_assessment/start", "ana", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "business_rule", decode[ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/v1/assessments/module1_assessment/start", "ana",
		services.StartOptions{RandomizeQuestions: &off, RandomizeOptions: &off})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	start := decode[services.StartResponse](t, w)
	assert.Equal(t, "m1_q1", start.Question.ID)
	assert.Equal(t, 5, start.TotalQuestions)
	assert.NotContains(t, w.Body.String(), "correct_index")

	w = s.do(t, http.MethodPost, "/api/v1/assessments/module1_assessment/start", "ana", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/current", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, start.SessionID, decode[services.SessionState](t, w).SessionID)

	answers := "/api/v1/sessions/" + start.SessionID + "/answers"
	w = s.do(t, http.MethodPost, answers, "ana", SubmitAnswerRequest{QuestionID: "m1_q2", Answer: json.RawMessage(`"no"`)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, answers, "ana", map[string]string{"question_id": "m1_q2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, answers, "ana", SubmitAnswerRequest{QuestionID: "m1_q2", Answer: json.RawMessage(`false`)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	submitted := decode[services.SubmitResponse](t, w)
	require.NotNil(t, submitted.Evaluation)
	assert.True(t, submitted.Evaluation.IsCorrect)
	assert.Equal(t, 20, submitted.Progress)

	w = s.do(t, http.MethodPost, answers, "ana", SubmitAnswerRequest{QuestionID: "m1_q2", Answer: json.RawMessage(`true`)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, answers, "ana", SubmitAnswerRequest{QuestionID: "m9", Answer: json.RawMessage(`true`)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	extend := "/api/v1/sessions/" + start.SessionID + "/extend"
	w = s.do(t, http.MethodPost, extend, "ana", ExtendTimeRequest{Seconds: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, extend, "ana", ExtendTimeRequest{Seconds: 60})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1860, decode[ExtendTimeResponse](t, w).TimeRemaining)

	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+start.SessionID+"/complete", "ben", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+start.SessionID+"/complete", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[models.Result](t, w)
	assert.Equal(t, 17, result.Score.Percentage)
	assert.False(t, result.Score.Passed)

	w = s.do(t, http.MethodGet, "/api/v1/results/"+start.SessionID, "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, start.SessionID, decode[models.Result](t, w).SessionID)

	w = s.do(t, http.MethodGet, "/api/v1/results/"+start.SessionID, "ben", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/history/module1_assessment", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[models.History](t, w)
	assert.Equal(t, 1, history.Attempts)

	w = s.do(t, http.MethodGet, "/api/v1/history/module1_assessment/export", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, excelContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "module1_assessment_history.xlsx")
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")

	w = s.do(t, http.MethodGet, "/api/v1/sessions/current", "ana", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResumeWithoutSession(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/sessions/resume", "ana", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeParser struct{}

func (fakeParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if token != "good-token" {
		return nil, errors.New("invalid token")
	}
	return &casdoorsdk.Claims{User: casdoorsdk.User{Owner: "ec0249", Name: "ana"}}, nil
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	s := newTestServer(t, fakeParser{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil)
	req.Header.Set(userIDHeader, "mallory")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the header is ignored when tokens are required")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/assessments/module1_assessment/start", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	e, err := s.manager.Engine("ec0249/ana")
	require.NoError(t, err)
	_, err = e.CurrentSession()
	assert.NoError(t, err)
}

func TestNewCasdoorTokenParser_Disabled(t *testing.T) {
	assert.Nil(t, NewCasdoorTokenParser(config.AuthConfig{Enabled: false}))
}
