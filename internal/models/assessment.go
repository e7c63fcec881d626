package models

type ScoringMethod string

const (
	ScoringStandard   ScoringMethod = "standard"
	ScoringWeighted   ScoringMethod = "weighted"
	ScoringCompetency ScoringMethod = "competency"
	ScoringAdaptive   ScoringMethod = "adaptive"
)

func (m ScoringMethod) IsValid() bool {
	switch m {
	case ScoringStandard, ScoringWeighted, ScoringCompetency, ScoringAdaptive:
		return true
	}
	return false
}

// DefaultPassingScore applies when an assessment does not declare one.
const DefaultPassingScore = 70

type AssessmentDefinition struct {
	ID            string   `json:"id" validate:"required"`
	Title         string   `json:"title" validate:"required,min=1,max=200"`
	Description   string   `json:"description,omitempty" validate:"max=1000"`
	Module        string   `json:"module,omitempty"`
	Element       string   `json:"element,omitempty"`
	Category      string   `json:"category,omitempty"`
	TimeLimit     int      `json:"time_limit" validate:"min=0,max=14400"` // Seconds, 0 = untimed
	PassingScore  int      `json:"passing_score" validate:"min=0,max=100"`
	MaxAttempts   int      `json:"max_attempts" validate:"min=0,max=10"` // 0 = unlimited
	TimeWarning   int      `json:"time_warning,omitempty" validate:"min=0"`
	Prerequisites []string `json:"prerequisites,omitempty"`

	Settings  AssessmentSettings `json:"settings"`
	Questions []Question         `json:"questions" validate:"required,min=1,dive"`
}

type AssessmentSettings struct {
	// Question Display Settings
	RandomizeQuestions bool `json:"randomize_questions"`
	RandomizeOptions   bool `json:"randomize_options"`

	// Result Settings
	ShowCorrectAnswers bool `json:"show_correct_answers"`

	// Scoring
	ScoringMethod       ScoringMethod `json:"scoring_method,omitempty" validate:"omitempty,scoring_method"`
	CompetencyThreshold int           `json:"competency_threshold,omitempty" validate:"min=0,max=100"`
}

// PassingScoreOrDefault returns the passing percentage, falling back to DefaultPassingScore.
func (a *AssessmentDefinition) PassingScoreOrDefault() int {
	if a.PassingScore <= 0 {
		return DefaultPassingScore
	}
	return a.PassingScore
}

func (a *AssessmentDefinition) TotalPoints() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// QuestionByID returns the question with the given id, or nil.
func (a *AssessmentDefinition) QuestionByID(id string) *Question {
	for i := range a.Questions {
		if a.Questions[i].ID == id {
			return &a.Questions[i]
		}
	}
	return nil
}
