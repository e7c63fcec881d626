package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// Session lifecycle events
	EventAssessmentStarted   EventType = "assessment.started"
	EventAssessmentAnswered  EventType = "assessment.answered"
	EventAssessmentCompleted EventType = "assessment.completed"

	// Timer events
	EventTimerTick   EventType = "assessment.timer_tick"
	EventTimeWarning EventType = "assessment.time_warning"

	// Achievement events
	EventPerfectScore    EventType = "achievement.perfect_score"
	EventHighPerformance EventType = "achievement.high_performance"
	EventModulePassed    EventType = "achievement.module_passed"
)

const (
	eventSource  = "ec0249-assessment"
	eventVersion = "1.0"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Session notification event payloads

type AssessmentStartedEvent struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	AssessmentID    string    `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	QuestionCount   int       `json:"question_count"`
	TimeLimit       int       `json:"time_limit"` // seconds
	StartedAt       time.Time `json:"started_at"`
}

type AssessmentAnsweredEvent struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	AssessmentID string `json:"assessment_id"`
	QuestionID   string `json:"question_id"`
	Answered     int    `json:"answered"`
	Total        int    `json:"total"`
	Progress     int    `json:"progress"` // percent
}

type AssessmentCompletedEvent struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	AssessmentID string    `json:"assessment_id"`
	Status       string    `json:"status"`
	Percentage   int       `json:"percentage"`
	FinalScore   int       `json:"final_score"`
	Passed       bool      `json:"passed"`
	GradeLetter  string    `json:"grade_letter"`
	Duration     int       `json:"duration"` // seconds
	CompletedAt  time.Time `json:"completed_at"`
}

// Timer notification event payloads

type TimerTickEvent struct {
	SessionID        string `json:"session_id"`
	UserID           string `json:"user_id"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

type TimeWarningEvent struct {
	SessionID        string `json:"session_id"`
	UserID           string `json:"user_id"`
	AssessmentID     string `json:"assessment_id"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

// Achievement notification event payload

type AchievementEvent struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	AssessmentID string `json:"assessment_id"`
	Percentage   int    `json:"percentage"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewAssessmentStartedEvent(data AssessmentStartedEvent) *NotificationEvent {
	return newEvent(EventAssessmentStarted, data)
}

func NewAssessmentAnsweredEvent(data AssessmentAnsweredEvent) *NotificationEvent {
	return newEvent(EventAssessmentAnswered, data)
}

func NewAssessmentCompletedEvent(data AssessmentCompletedEvent) *NotificationEvent {
	return newEvent(EventAssessmentCompleted, data)
}

func NewTimerTickEvent(sessionID, userID string, remaining int) *NotificationEvent {
	return newEvent(EventTimerTick, TimerTickEvent{
		SessionID:        sessionID,
		UserID:           userID,
		SecondsRemaining: remaining,
	})
}

func NewTimeWarningEvent(sessionID, userID, assessmentID string, remaining int) *NotificationEvent {
	return newEvent(EventTimeWarning, TimeWarningEvent{
		SessionID:        sessionID,
		UserID:           userID,
		AssessmentID:     assessmentID,
		SecondsRemaining: remaining,
	})
}

// NewAchievementEvent builds one of the achievement.* events.
func NewAchievementEvent(eventType EventType, data AchievementEvent) *NotificationEvent {
	return newEvent(eventType, data)
}

// GenerateEventID returns a new random event id.
func GenerateEventID() string {
	return uuid.NewString()
}
