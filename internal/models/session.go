package models

import "time"

type SessionStatus string

const (
	SessionNotStarted  SessionStatus = "not_started"
	SessionInProgress  SessionStatus = "in_progress"
	SessionCompleted   SessionStatus = "completed"
	SessionTimeExpired SessionStatus = "time_expired"
)

// IsFinal reports whether the status ends a session.
func (s SessionStatus) IsFinal() bool {
	return s == SessionCompleted || s == SessionTimeExpired
}

// Session is one in-progress attempt at an assessment. It is serialized as the resume snapshot.
type Session struct {
	ID                   string               `json:"id"`
	UserID               string               `json:"user_id"`
	AssessmentID         string               `json:"assessment_id"`
	Questions            []Question           `json:"questions"`
	StartedAt            time.Time            `json:"started_at"`
	TimeLimit            int                  `json:"time_limit"`     // Seconds
	TimeRemaining        int                  `json:"time_remaining"` // Seconds
	TimeWarningSent      bool                 `json:"time_warning_sent"`
	Responses            map[string]*Response `json:"responses"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	QuestionPresentedAt  time.Time            `json:"question_presented_at"`
	ScoringMethod        ScoringMethod        `json:"scoring_method"`
	Status               SessionStatus        `json:"status"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func (s *Session) IsTimed() bool {
	return s.TimeLimit > 0
}

// HasQuestion reports whether questionID is part of this session.
func (s *Session) HasQuestion(questionID string) bool {
	return s.QuestionIndex(questionID) >= 0
}

func (s *Session) QuestionIndex(questionID string) int {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// CurrentQuestion returns the question at CurrentQuestionIndex, or nil when all were presented.
func (s *Session) CurrentQuestion() *Question {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentQuestionIndex]
}

func (s *Session) AnsweredCount() int {
	return len(s.Responses)
}

// Progress returns the answered percentage, rounded down.
func (s *Session) Progress() int {
	if len(s.Questions) == 0 {
		return 0
	}
	return len(s.Responses) * 100 / len(s.Questions)
}

func (s *Session) AllAnswered() bool {
	return len(s.Questions) > 0 && len(s.Responses) >= len(s.Questions)
}
