package models

import "time"

type QuestionResult struct {
	QuestionID           string       `json:"question_id"`
	Type                 QuestionType `json:"type"`
	Competency           string       `json:"competency"`
	Answered             bool         `json:"answered"`
	IsCorrect            bool         `json:"is_correct"`
	Points               float64      `json:"points"`
	PartialPoints        float64      `json:"partial_points"`
	MaxPoints            float64      `json:"max_points"`
	Weight               float64      `json:"weight"`
	RequiresManualReview bool         `json:"requires_manual_review"`
	Feedback             string       `json:"feedback,omitempty"`
}

type CompetencyScore struct {
	Competency   string  `json:"competency"`
	EarnedPoints float64 `json:"earned_points"`
	TotalPoints  float64 `json:"total_points"`
	Percentage   int     `json:"percentage"`
	Passed       bool    `json:"passed"`
	Questions    int     `json:"questions"`
}

// ScoreResult is the score breakdown of one session.
type ScoreResult struct {
	Method          ScoringMethod     `json:"method"`
	TotalPoints     float64           `json:"total_points"`
	EarnedPoints    float64           `json:"earned_points"`
	Percentage      int               `json:"percentage"`
	Passed          bool              `json:"passed"`
	PassingScore    int               `json:"passing_score"`
	GradeLetter     string            `json:"grade_letter"`
	TimeBonus       int               `json:"time_bonus"`
	FinalScore      int               `json:"final_score"`
	PendingReview   int               `json:"pending_review"`
	QuestionResults []QuestionResult  `json:"question_results"`
	Competencies    []CompetencyScore `json:"competencies,omitempty"`
}

// Result is the finalized score record for a completed session.
type Result struct {
	SessionID     string        `json:"session_id"`
	AssessmentID  string        `json:"assessment_id"`
	UserID        string        `json:"user_id"`
	Score         ScoreResult   `json:"score"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	Duration      time.Duration `json:"duration"`
	AnsweredCount int           `json:"answered_count"`
	QuestionCount int           `json:"question_count"`
}

type HistoryEntry struct {
	SessionID   string        `json:"session_id"`
	Percentage  int           `json:"percentage"`
	FinalScore  int           `json:"final_score"`
	Passed      bool          `json:"passed"`
	GradeLetter string        `json:"grade_letter"`
	Status      SessionStatus `json:"status"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// History is the persisted attempt record of one user for one assessment.
type History struct {
	UserID        string         `json:"user_id"`
	AssessmentID  string         `json:"assessment_id"`
	Attempts      int            `json:"attempts"`
	BestScore     int            `json:"best_score"`
	Passed        bool           `json:"passed"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty"`
	Results       []HistoryEntry `json:"results"`
}

// Record appends a result summary and updates attempt counters.
func (h *History) Record(r *Result) {
	h.Attempts++
	if r.Score.Percentage > h.BestScore {
		h.BestScore = r.Score.Percentage
	}
	if r.Score.Passed {
		h.Passed = true
	}
	completed := r.CompletedAt
	h.LastAttemptAt = &completed
	h.Results = append(h.Results, HistoryEntry{
		SessionID:   r.SessionID,
		Percentage:  r.Score.Percentage,
		FinalScore:  r.Score.FinalScore,
		Passed:      r.Score.Passed,
		GradeLetter: r.Score.GradeLetter,
		Status:      r.Status,
		CompletedAt: r.CompletedAt,
		Duration:    r.Duration,
	})
}
