package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/gin-gonic/gin"
)

// AssessmentHandler serves the read-only assessment catalog.
type AssessmentHandler struct {
	BaseHandler
	catalog *catalog.Catalog
}

func NewAssessmentHandler(base BaseHandler, c *catalog.Catalog) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler: base,
		catalog:     c,
	}
}

// AssessmentSummary describes an assessment without its questions.
type AssessmentSummary struct {
	ID            string                    `json:"id"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description,omitempty"`
	Module        string                    `json:"module,omitempty"`
	Element       string                    `json:"element,omitempty"`
	Category      string                    `json:"category,omitempty"`
	TimeLimit     int                       `json:"time_limit"`
	PassingScore  int                       `json:"passing_score"`
	MaxAttempts   int                       `json:"max_attempts"`
	Prerequisites []string                  `json:"prerequisites,omitempty"`
	QuestionCount int                       `json:"question_count"`
	TotalPoints   int                       `json:"total_points"`
	Settings      models.AssessmentSettings `json:"settings"`
}

type AssessmentListResponse struct {
	Version     string              `json:"version"`
	Assessments []AssessmentSummary `json:"assessments"`
	Total       int                 `json:"total"`
}

func summarize(a *models.AssessmentDefinition) AssessmentSummary {
	return AssessmentSummary{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		Module:        a.Module,
		Element:       a.Element,
		Category:      a.Category,
		TimeLimit:     a.TimeLimit,
		PassingScore:  a.PassingScoreOrDefault(),
		MaxAttempts:   a.MaxAttempts,
		Prerequisites: a.Prerequisites,
		QuestionCount: len(a.Questions),
		TotalPoints:   a.TotalPoints(),
		Settings:      a.Settings,
	}
}

// ListAssessments lists catalog assessments
// @Summary List assessments
// @Description Lists assessments, optionally filtered by module, element or category
// @Tags assessments
// @Produce json
// @Param module query string false "Module"
// @Param element query string false "Competency element"
// @Param category query string false "Category"
// @Success 200 {object} AssessmentListResponse
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	var filters catalog.Filters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	found := h.catalog.Filter(filters)
	resp := AssessmentListResponse{
		Version:     h.catalog.Version(),
		Assessments: make([]AssessmentSummary, 0, len(found)),
		Total:       len(found),
	}
	for _, a := range found {
		resp.Assessments = append(resp.Assessments, summarize(a))
	}
	c.JSON(http.StatusOK, resp)
}

// GetAssessment retrieves an assessment by ID
// @Summary Get assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} AssessmentSummary
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id, ok := parseStringParam(c, "id")
	if !ok {
		return
	}

	a, err := h.catalog.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summarize(a))
}
