package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SAP-F-2025/ec0249-assessment/internal/services"
	"github.com/gin-gonic/gin"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SessionHandler exposes the caller's assessment sessions, results and history.
type SessionHandler struct {
	BaseHandler
	manager *services.SessionManager
	export  *services.ExportService
}

func NewSessionHandler(base BaseHandler, manager *services.SessionManager, export *services.ExportService) *SessionHandler {
	return &SessionHandler{
		BaseHandler: base,
		manager:     manager,
		export:      export,
	}
}

type SubmitAnswerRequest struct {
	QuestionID string          `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer" validate:"required"`
}

type ExtendTimeRequest struct {
	Seconds int `json:"seconds" validate:"required,min=1,max=3600"`
}

type ExtendTimeResponse struct {
	SessionID     string `json:"session_id"`
	TimeRemaining int    `json:"time_remaining"`
}

func (h *SessionHandler) engine(c *gin.Context) (*services.AssessmentEngine, bool) {
	e, err := h.manager.Engine(c.GetString(userIDKey))
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	return e, true
}

// StartAssessment starts a session of an assessment for the caller
// @Summary Start assessment
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param options body services.StartOptions false "Overrides"
// @Success 201 {object} services.StartResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/start [post]
func (h *SessionHandler) StartAssessment(c *gin.Context) {
	assessmentID, ok := parseStringParam(c, "id")
	if !ok {
		return
	}

	var opts services.StartOptions
	if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	e, ok := h.engine(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting assessment", "assessment_id", assessmentID)
	resp, err := e.Start(c.Request.Context(), assessmentID, opts)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CurrentSession returns the caller's active session
// @Summary Current session
// @Tags sessions
// @Produce json
// @Success 200 {object} services.SessionState
// @Failure 404 {object} ErrorResponse
// @Router /sessions/current [get]
func (h *SessionHandler) CurrentSession(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	state, err := e.CurrentSession()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ResumeSession restores the caller's suspended session
// @Summary Resume session
// @Tags sessions
// @Produce json
// @Success 200 {object} services.SessionState
// @Failure 404 {object} ErrorResponse
// @Router /sessions/resume [post]
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	state, err := e.Resume(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SubmitAnswer answers one question of the session
// @Summary Submit answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body SubmitAnswerRequest true "Answer"
// @Success 200 {object} services.SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answers [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := parseStringParam(c, "id")
	if !ok {
		return
	}
	var req SubmitAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	e, ok := h.engine(c)
	if !ok {
		return
	}

	resp, err := e.SubmitRawAnswer(c.Request.Context(), sessionID, req.QuestionID, req.Answer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompleteSession finishes the session and returns its result
// @Summary Complete session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.Result
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	sessionID, ok := parseStringParam(c, "id")
	if !ok {
		return
	}
	e, ok := h.engine(c)
	if !ok {
		return
	}

	result, err := e.Complete(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExtendTime adds time to a timed session
// @Summary Extend time
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ExtendTimeRequest true "Extension"
// @Success 200 {object} ExtendTimeResponse
// @Failure 422 {object} ErrorResponse
// @Router /sessions/{id}/extend [post]
func (h *SessionHandler) ExtendTime(c *gin.Context) {
	sessionID, ok := parseStringParam(c, "id")
	if !ok {
		return
	}
	var req ExtendTimeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	e, ok := h.engine(c)
	if !ok {
		return
	}

	remaining, err := e.ExtendTime(c.Request.Context(), sessionID, req.Seconds)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExtendTimeResponse{SessionID: sessionID, TimeRemaining: remaining})
}

// GetResult returns the result of one of the caller's completed sessions
// @Summary Get result
// @Tags results
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} models.Result
// @Failure 404 {object} ErrorResponse
// @Router /results/{session_id} [get]
func (h *SessionHandler) GetResult(c *gin.Context) {
	sessionID, ok := parseStringParam(c, "session_id")
	if !ok {
		return
	}
	e, ok := h.engine(c)
	if !ok {
		return
	}

	result, err := e.Result(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetHistory returns the caller's attempts at an assessment
// @Summary Get history
// @Tags results
// @Produce json
// @Param assessment_id path string true "Assessment ID"
// @Success 200 {object} models.History
// @Failure 404 {object} ErrorResponse
// @Router /history/{assessment_id} [get]
func (h *SessionHandler) GetHistory(c *gin.Context) {
	assessmentID, ok := parseStringParam(c, "assessment_id")
	if !ok {
		return
	}
	e, ok := h.engine(c)
	if !ok {
		return
	}

	history, err := e.History(c.Request.Context(), assessmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ExportHistory downloads the caller's attempts at an assessment as an Excel workbook
// @Summary Export history
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param assessment_id path string true "Assessment ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /history/{assessment_id}/export [get]
func (h *SessionHandler) ExportHistory(c *gin.Context) {
	assessmentID, ok := parseStringParam(c, "assessment_id")
	if !ok {
		return
	}
	e, ok := h.engine(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	history, err := e.History(ctx, assessmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	a, err := h.manager.Catalog().Get(assessmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	data, err := h.export.ExportHistory(ctx, a, history)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_history.xlsx"`, assessmentID))
	c.Data(http.StatusOK, excelContentType, data)
}
