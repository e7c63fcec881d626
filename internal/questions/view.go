package questions

import (
	"sort"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
)

// View strips the answer key from q. Matching right-hand items are sorted so their
// presented order does not reveal the pairing.
func View(q *models.Question, index, total int) *models.QuestionView {
	if q == nil {
		return nil
	}
	view := &models.QuestionView{
		ID:     q.ID,
		Type:   q.Type,
		Prompt: q.Prompt,
		Points: q.Points,
		Index:  index,
		Total:  total,
	}
	switch q.Type {
	case models.MultipleChoice:
		view.Options = append([]string(nil), q.Options...)
	case models.TrueFalse:
		view.Options = []string{"true", "false"}
	case models.Matching:
		for _, p := range q.Pairs {
			view.Left = append(view.Left, p.Left)
			view.Right = append(view.Right, p.Right)
		}
		sort.Strings(view.Right)
	}
	return view
}
