// Package questions validates and evaluates answers for each supported question type.
package questions

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/ec0249-assessment/internal/errors"
	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/SAP-F-2025/ec0249-assessment/internal/validator"
)

var (
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrUnsupportedQuestion = errors.New("unsupported question type")
)

// Evaluation is the outcome of evaluating one answer against one question.
type Evaluation struct {
	QuestionID           string                   `json:"question_id"`
	Type                 models.QuestionType      `json:"type"`
	IsCorrect            bool                     `json:"is_correct"`
	Points               int                      `json:"points"`
	MaxPoints            int                      `json:"max_points"`
	Feedback             string                   `json:"feedback,omitempty"`
	RequiresManualReview bool                     `json:"requires_manual_review"`
	Ratio                float64                  `json:"ratio,omitempty"` // Keyword or pair match ratio
	Rubric               []models.RubricCriterion `json:"rubric,omitempty"`
}

type checkFunc func(q *models.Question) apperrors.ValidationErrors
type evaluateFunc func(q *models.Question, answer models.Answer) Evaluation

type handler struct {
	check    checkFunc
	evaluate evaluateFunc
}

// Evaluator dispatches validation and evaluation by question type.
type Evaluator struct {
	validator *validator.Validator
	handlers  map[models.QuestionType]handler
}

func NewEvaluator(v *validator.Validator) *Evaluator {
	if v == nil {
		v = validator.New()
	}
	return &Evaluator{
		validator: v,
		handlers: map[models.QuestionType]handler{
			models.MultipleChoice: {check: checkMultipleChoice, evaluate: evaluateMultipleChoice},
			models.TrueFalse:      {check: checkTrueFalse, evaluate: evaluateTrueFalse},
			models.ShortAnswer:    {check: checkShortAnswer, evaluate: evaluateShortAnswer},
			models.Essay:          {check: checkEssay, evaluate: evaluateEssay},
			models.Matching:       {check: checkMatching, evaluate: evaluateMatching},
		},
	}
}

// Validate checks the structural completeness of a question for its type.
func (e *Evaluator) Validate(q *models.Question) error {
	if q == nil {
		return fmt.Errorf("%w: question is nil", ErrInvalidQuestion)
	}
	if err := e.validator.Validate(q); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidQuestion, q.ID, err)
	}

	h, ok := e.handlers[q.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedQuestion, q.Type)
	}
	if errs := h.check(q); len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidQuestion, q.ID, errs)
	}
	return nil
}

// IsValid is Validate as a predicate.
func (e *Evaluator) IsValid(q *models.Question) bool {
	return e.Validate(q) == nil
}

// Evaluate validates the question and scores the answer against it.
func (e *Evaluator) Evaluate(q *models.Question, answer models.Answer) (Evaluation, error) {
	if err := e.Validate(q); err != nil {
		return Evaluation{}, err
	}
	ev := e.handlers[q.Type].evaluate(q, answer)
	ev.QuestionID = q.ID
	ev.Type = q.Type
	ev.MaxPoints = q.Points
	return ev, nil
}
