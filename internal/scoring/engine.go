// Package scoring aggregates per-question evaluations into a score using pluggable strategies.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/SAP-F-2025/ec0249-assessment/internal/questions"
)

var ErrUnknownScoringMethod = errors.New("unknown scoring method")

// DefaultCompetencyThreshold is the per-group pass mark for competency scoring.
const DefaultCompetencyThreshold = 70

// timeBonusCutoff is the share of the time limit under which a time bonus is earned.
const timeBonusCutoff = 0.75

// DefaultWeights are the per-type multipliers of weighted scoring.
var DefaultWeights = map[models.QuestionType]float64{
	models.MultipleChoice: 1.0,
	models.TrueFalse:      0.8,
	models.ShortAnswer:    1.2,
	models.Essay:          1.5,
	models.Matching:       1.1,
}

// Options selects and tunes a scoring strategy.
type Options struct {
	Method              models.ScoringMethod
	Weights             map[models.QuestionType]float64
	CompetencyThreshold int
	TimeSpent           time.Duration
}

type strategy func(e *Engine, a *models.AssessmentDefinition, evals []models.QuestionResult, opts Options) *models.ScoreResult

// Engine computes ScoreResults. It holds no mutable state.
type Engine struct {
	evaluator  *questions.Evaluator
	strategies map[models.ScoringMethod]strategy
}

func NewEngine(evaluator *questions.Evaluator) *Engine {
	if evaluator == nil {
		evaluator = questions.NewEvaluator(nil)
	}
	return &Engine{
		evaluator: evaluator,
		strategies: map[models.ScoringMethod]strategy{
			models.ScoringStandard:   (*Engine).standard,
			models.ScoringWeighted:   (*Engine).weighted,
			models.ScoringCompetency: (*Engine).competency,
			// Adaptive scoring has no model of its own yet and scores like standard.
			models.ScoringAdaptive: (*Engine).standard,
		},
	}
}

// Calculate scores responses against the questions of a. Questions are taken from a in order;
// a question earns its full points when evaluated correct and zero otherwise. The evaluator's
// partial credit is kept in QuestionResult.PartialPoints for manual grading.
func (e *Engine) Calculate(a *models.AssessmentDefinition, responses map[string]*models.Response, opts Options) (*models.ScoreResult, error) {
	if opts.Method == "" {
		opts.Method = models.ScoringStandard
	}
	strat, ok := e.strategies[opts.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScoringMethod, opts.Method)
	}

	results, err := e.evaluateAll(a, responses)
	if err != nil {
		return nil, err
	}

	score := strat(e, a, results, opts)
	score.Method = opts.Method
	score.PassingScore = a.PassingScoreOrDefault()
	score.GradeLetter = GradeLetter(score.Percentage)
	score.QuestionResults = results
	for _, r := range results {
		if r.RequiresManualReview {
			score.PendingReview++
		}
	}
	score.FinalScore = score.Percentage + score.TimeBonus
	return score, nil
}

func (e *Engine) evaluateAll(a *models.AssessmentDefinition, responses map[string]*models.Response) ([]models.QuestionResult, error) {
	results := make([]models.QuestionResult, 0, len(a.Questions))
	for i := range a.Questions {
		q := &a.Questions[i]
		result := models.QuestionResult{
			QuestionID: q.ID,
			Type:       q.Type,
			Competency: q.CompetencyOrDefault(),
			MaxPoints:  float64(q.Points),
			Weight:     1,
		}

		resp, answered := responses[q.ID]
		if !answered || resp == nil || resp.Answer.IsEmpty() {
			if err := e.evaluator.Validate(q); err != nil {
				return nil, err
			}
			result.Feedback = "Not answered"
			results = append(results, result)
			continue
		}

		ev, err := e.evaluator.Evaluate(q, resp.Answer)
		if err != nil {
			return nil, err
		}
		result.Answered = true
		result.IsCorrect = ev.IsCorrect
		result.PartialPoints = float64(ev.Points)
		if ev.IsCorrect {
			result.Points = float64(q.Points)
		}
		result.RequiresManualReview = ev.RequiresManualReview
		result.Feedback = ev.Feedback
		results = append(results, result)
	}
	return results, nil
}

// ===== STRATEGIES =====

func (e *Engine) standard(a *models.AssessmentDefinition, results []models.QuestionResult, opts Options) *models.ScoreResult {
	score := totals(results)
	score.Passed = score.Percentage >= a.PassingScoreOrDefault()
	score.TimeBonus = TimeBonus(opts.TimeSpent, a.TimeLimit)
	return score
}

func (e *Engine) weighted(a *models.AssessmentDefinition, results []models.QuestionResult, opts Options) *models.ScoreResult {
	weights := opts.Weights
	if weights == nil {
		weights = DefaultWeights
	}
	for i := range results {
		w, ok := weights[results[i].Type]
		if !ok {
			w = 1
		}
		results[i].Weight = w
		results[i].Points *= w
		results[i].PartialPoints *= w
		results[i].MaxPoints *= w
	}
	score := totals(results)
	score.Passed = score.Percentage >= a.PassingScoreOrDefault()
	return score
}

func (e *Engine) competency(a *models.AssessmentDefinition, results []models.QuestionResult, opts Options) *models.ScoreResult {
	threshold := opts.CompetencyThreshold
	if threshold <= 0 {
		threshold = DefaultCompetencyThreshold
	}

	var order []string
	groups := make(map[string]*models.CompetencyScore)
	for _, r := range results {
		g, ok := groups[r.Competency]
		if !ok {
			g = &models.CompetencyScore{Competency: r.Competency}
			groups[r.Competency] = g
			order = append(order, r.Competency)
		}
		g.EarnedPoints += r.Points
		g.TotalPoints += r.MaxPoints
		g.Questions++
	}

	score := totals(results)
	allPassed := true
	sum := 0
	for _, name := range order {
		g := groups[name]
		g.Percentage = percentage(g.EarnedPoints, g.TotalPoints)
		g.Passed = g.Percentage >= threshold
		if !g.Passed {
			allPassed = false
		}
		sum += g.Percentage
		score.Competencies = append(score.Competencies, *g)
	}
	if len(order) > 0 {
		score.Percentage = int(math.Round(float64(sum) / float64(len(order))))
	}
	score.Passed = allPassed && score.Percentage >= a.PassingScoreOrDefault()
	return score
}

// ===== HELPERS =====

func totals(results []models.QuestionResult) *models.ScoreResult {
	score := &models.ScoreResult{}
	for _, r := range results {
		score.EarnedPoints += r.Points
		score.TotalPoints += r.MaxPoints
	}
	score.Percentage = percentage(score.EarnedPoints, score.TotalPoints)
	return score
}

func percentage(earned, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(earned / total * 100))
}

// GradeLetter maps a percentage to a letter grade.
func GradeLetter(percentage int) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// TimeBonus rewards finishing within the first three quarters of the time limit (seconds).
func TimeBonus(spent time.Duration, limitSeconds int) int {
	if limitSeconds <= 0 {
		return 0
	}
	if spent < 0 {
		spent = 0
	}
	ratio := spent.Seconds() / float64(limitSeconds)
	if ratio >= timeBonusCutoff {
		return 0
	}
	return int(math.Round((timeBonusCutoff - ratio) * 10))
}
