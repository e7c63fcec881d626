package questions

import (
	"fmt"
	"math"

	apperrors "github.com/SAP-F-2025/ec0249-assessment/internal/errors"
	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
)

const (
	shortAnswerPassRatio  = 0.6
	shortAnswerReviewLow  = 0.4
	shortAnswerReviewHigh = 0.8
	matchingPassRatio     = 0.8
)

const (
	feedbackCorrect          = "Correct"
	feedbackIncorrect        = "Incorrect"
	feedbackUnanswered       = "No answer provided"
	feedbackPendingReview    = "Pending manual review"
	feedbackPartiallyCorrect = "Partially correct"
)

// ===== MULTIPLE CHOICE =====

func checkMultipleChoice(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors
	if len(q.Options) < 2 {
		errs = append(errs, *apperrors.NewValidationError("options", "must have at least 2 options", len(q.Options)))
	}
	for i, opt := range q.Options {
		if opt == "" {
			errs = append(errs, *apperrors.NewValidationError(fmt.Sprintf("options[%d]", i), "option text cannot be empty", opt))
		}
	}
	if q.CorrectIndex == nil {
		errs = append(errs, *apperrors.NewValidationError("correct_index", "is required", nil))
	} else if *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options) {
		errs = append(errs, *apperrors.NewValidationErrorWithRule("correct_index", "is out of range", "range", *q.CorrectIndex))
	}
	return errs
}

func evaluateMultipleChoice(q *models.Question, answer models.Answer) Evaluation {
	if answer.Choice == nil {
		return Evaluation{Feedback: feedbackUnanswered}
	}
	return exact(q, *answer.Choice == *q.CorrectIndex)
}

// ===== TRUE / FALSE =====

func checkTrueFalse(q *models.Question) apperrors.ValidationErrors {
	if q.CorrectBool == nil {
		return apperrors.ValidationErrors{*apperrors.NewValidationError("correct_bool", "is required", nil)}
	}
	return nil
}

func evaluateTrueFalse(q *models.Question, answer models.Answer) Evaluation {
	if answer.Bool == nil {
		return Evaluation{Feedback: feedbackUnanswered}
	}
	return exact(q, *answer.Bool == *q.CorrectBool)
}

func exact(q *models.Question, correct bool) Evaluation {
	if !correct {
		return Evaluation{Feedback: feedbackIncorrect}
	}
	return Evaluation{IsCorrect: true, Points: q.Points, Feedback: feedbackCorrect}
}

// ===== SHORT ANSWER =====

func checkShortAnswer(q *models.Question) apperrors.ValidationErrors {
	if len(Keywords(q.SampleAnswer)) == 0 {
		return apperrors.ValidationErrors{*apperrors.NewValidationError("sample_answer", "must contain at least one keyword", q.SampleAnswer)}
	}
	return nil
}

func evaluateShortAnswer(q *models.Question, answer models.Answer) Evaluation {
	if answer.Text == nil || Normalize(*answer.Text) == "" {
		return Evaluation{Feedback: feedbackUnanswered}
	}

	ratio := KeywordOverlap(q.SampleAnswer, *answer.Text)
	ev := Evaluation{
		Ratio:                ratio,
		RequiresManualReview: ratio >= shortAnswerReviewLow && ratio < shortAnswerReviewHigh,
	}
	switch {
	case ratio >= shortAnswerPassRatio:
		ev.IsCorrect = true
		ev.Points = q.Points
		ev.Feedback = feedbackCorrect
	case ratio > 0:
		ev.Points = int(math.Floor(float64(q.Points) * ratio))
		ev.Feedback = feedbackPartiallyCorrect
	default:
		ev.Feedback = feedbackIncorrect
	}
	if ev.RequiresManualReview {
		ev.Feedback += "; flagged for manual review"
	}
	return ev
}

// ===== ESSAY =====

func checkEssay(q *models.Question) apperrors.ValidationErrors {
	if len(q.Rubric) == 0 {
		return apperrors.ValidationErrors{*apperrors.NewValidationError("rubric", "must have at least 1 criterion", nil)}
	}
	var errs apperrors.ValidationErrors
	for i, c := range q.Rubric {
		if c.Criterion == "" {
			errs = append(errs, *apperrors.NewValidationError(fmt.Sprintf("rubric[%d].criterion", i), "is required", nil))
		}
	}
	return errs
}

// evaluateEssay never awards automatic credit; essays wait for a human grader.
func evaluateEssay(q *models.Question, answer models.Answer) Evaluation {
	ev := Evaluation{
		RequiresManualReview: true,
		Rubric:               q.Rubric,
		Feedback:             feedbackPendingReview,
	}
	if answer.Text == nil || Normalize(*answer.Text) == "" {
		ev.Feedback = feedbackUnanswered
	}
	return ev
}

// ===== MATCHING =====

func checkMatching(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors
	if len(q.Pairs) < 2 {
		errs = append(errs, *apperrors.NewValidationError("pairs", "must have at least 2 pairs", len(q.Pairs)))
	}
	seen := make(map[string]bool, len(q.Pairs))
	for i, p := range q.Pairs {
		if p.Left == "" || p.Right == "" {
			errs = append(errs, *apperrors.NewValidationError(fmt.Sprintf("pairs[%d]", i), "both sides are required", p))
			continue
		}
		if seen[p.Left] {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(fmt.Sprintf("pairs[%d].left", i), "is duplicated", "unique", p.Left))
		}
		seen[p.Left] = true
	}
	return errs
}

func evaluateMatching(q *models.Question, answer models.Answer) Evaluation {
	if len(answer.Pairs) == 0 {
		return Evaluation{Feedback: feedbackUnanswered}
	}

	// Last pairing wins when the same left item is matched twice.
	given := make(map[string]string, len(answer.Pairs))
	for _, p := range answer.Pairs {
		given[p.Left] = p.Right
	}

	matched := 0
	for _, p := range q.Pairs {
		if right, ok := given[p.Left]; ok && right == p.Right {
			matched++
		}
	}

	ratio := float64(matched) / float64(len(q.Pairs))
	ev := Evaluation{
		Ratio:     ratio,
		IsCorrect: ratio >= matchingPassRatio,
		Points:    int(math.Floor(float64(q.Points) * ratio)),
		Feedback:  fmt.Sprintf("%d of %d pairs matched", matched, len(q.Pairs)),
	}
	return ev
}
