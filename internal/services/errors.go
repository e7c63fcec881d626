package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	apperrors "github.com/SAP-F-2025/ec0249-assessment/internal/errors"
	"github.com/SAP-F-2025/ec0249-assessment/internal/questions"
	"github.com/SAP-F-2025/ec0249-assessment/internal/scoring"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")
	ErrEngineClosed     = errors.New("assessment engine is closed")

	// Assessment errors
	ErrAssessmentNotFound  = catalog.ErrAssessmentNotFound
	ErrMaxAttemptsExceeded = errors.New("maximum attempts exceeded")
	ErrPrerequisitesNotMet = errors.New("prerequisites not met")

	// Session errors
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionInProgress       = errors.New("another assessment session is in progress")
	ErrSessionNotTimed         = errors.New("session has no time limit")
	ErrQuestionNotInSession    = errors.New("question not found in session")
	ErrQuestionAlreadyAnswered = errors.New("question already answered")
	ErrResultNotFound          = errors.New("result not found")
)

// Business rule names reported in BusinessRuleError.Rule.
const (
	RuleMaxAttempts    = "max_attempts"
	RulePrerequisites  = "prerequisites"
	RuleSingleSession  = "single_active_session"
	RuleTimedExtension = "timed_extension"
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// BusinessRuleError is a policy violation. It unwraps to the sentinel it was raised for.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Err     error                  `json:"-"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func (bre *BusinessRuleError) Unwrap() error {
	return bre.Err
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}, err error) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
		Err:     err,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrQuestionNotInSession) ||
		errors.Is(err, ErrResultNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, questions.ErrInvalidAnswer) ||
		errors.Is(err, questions.ErrInvalidQuestion) ||
		errors.Is(err, scoring.ErrUnknownScoringMethod) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrQuestionAlreadyAnswered) ||
		errors.Is(err, ErrEngineClosed)
}
