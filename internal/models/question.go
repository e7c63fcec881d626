package models

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Matching       QuestionType = "matching"
)

// QuestionTypes lists every supported question type in catalog order.
var QuestionTypes = []QuestionType{MultipleChoice, TrueFalse, ShortAnswer, Essay, Matching}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// DefaultCompetency is used for questions that carry no competency tag.
const DefaultCompetency = "general"

type Question struct {
	ID          string       `json:"id" validate:"required"`
	Type        QuestionType `json:"type" validate:"required,question_type"`
	Prompt      string       `json:"prompt" validate:"required"`
	Points      int          `json:"points" validate:"min=1,max=100"`
	Competency  string       `json:"competency,omitempty"`
	Category    string       `json:"category,omitempty"`
	Explanation string       `json:"explanation,omitempty"`

	// Type-specific content
	Options      []string          `json:"options,omitempty"`
	CorrectIndex *int              `json:"correct_index,omitempty"`
	CorrectBool  *bool             `json:"correct_bool,omitempty"`
	SampleAnswer string            `json:"sample_answer,omitempty"`
	Rubric       []RubricCriterion `json:"rubric,omitempty"`
	Pairs        []MatchPair       `json:"pairs,omitempty"`
}

// CompetencyOrDefault returns the competency group the question scores into.
func (q *Question) CompetencyOrDefault() string {
	if q.Competency == "" {
		return DefaultCompetency
	}
	return q.Competency
}

// Clone returns a deep copy so shuffling never touches catalog data.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectIndex != nil {
		idx := *q.CorrectIndex
		out.CorrectIndex = &idx
	}
	if q.CorrectBool != nil {
		b := *q.CorrectBool
		out.CorrectBool = &b
	}
	if q.Rubric != nil {
		out.Rubric = append([]RubricCriterion(nil), q.Rubric...)
	}
	if q.Pairs != nil {
		out.Pairs = append([]MatchPair(nil), q.Pairs...)
	}
	return out
}

type RubricCriterion struct {
	Criterion   string `json:"criterion"`
	Description string `json:"description,omitempty"`
	Points      int    `json:"points"`
}

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// QuestionView is a question as presented to the candidate, without its answer key.
type QuestionView struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Points  int          `json:"points"`
	Options []string     `json:"options,omitempty"`
	Left    []string     `json:"left,omitempty"`
	Right   []string     `json:"right,omitempty"`
	Index   int          `json:"index"`
	Total   int          `json:"total"`
}
