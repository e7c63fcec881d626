package models

import "time"

// Answer holds a candidate's answer. Exactly one field is set, matching the question type.
type Answer struct {
	Choice *int        `json:"choice,omitempty"`
	Bool   *bool       `json:"bool,omitempty"`
	Text   *string     `json:"text,omitempty"`
	Pairs  []MatchPair `json:"pairs,omitempty"`
}

func ChoiceAnswer(index int) Answer { return Answer{Choice: &index} }

func BoolAnswer(b bool) Answer { return Answer{Bool: &b} }

func TextAnswer(text string) Answer { return Answer{Text: &text} }

func PairsAnswer(pairs ...MatchPair) Answer { return Answer{Pairs: pairs} }

func (a Answer) IsEmpty() bool {
	return a.Choice == nil && a.Bool == nil && a.Text == nil && len(a.Pairs) == 0
}

type Response struct {
	QuestionID  string        `json:"question_id"`
	Answer      Answer        `json:"answer"`
	SubmittedAt time.Time     `json:"submitted_at"`
	TimeSpent   time.Duration `json:"time_spent"`
}
