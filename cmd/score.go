package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/SAP-F-2025/ec0249-assessment/internal/questions"
	"github.com/SAP-F-2025/ec0249-assessment/internal/scoring"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <assessment-id> <answers.json>",
	Short: "Score a set of answers offline",
	Long: `Scores answers against a catalog assessment without starting a session.
The answers file maps question ids to answers, e.g. {"m1_q1": 1, "m1_q2": false}.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		a, err := c.Get(args[0])
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("answers file: %w", err)
		}

		responses := make(map[string]*models.Response, len(raw))
		for id, value := range raw {
			q := a.QuestionByID(id)
			if q == nil {
				return fmt.Errorf("question %q is not part of %s", id, a.ID)
			}
			answer, err := questions.DecodeAnswer(q.Type, value)
			if err != nil {
				return fmt.Errorf("question %q: %w", id, err)
			}
			responses[id] = &models.Response{QuestionID: id, Answer: answer}
		}

		method, _ := cmd.Flags().GetString("method")
		if method == "" {
			method = string(a.Settings.ScoringMethod)
		}
		score, err := scoring.NewEngine(questions.NewEvaluator(nil)).Calculate(a, responses, scoring.Options{
			Method:              models.ScoringMethod(method),
			CompetencyThreshold: a.Settings.CompetencyThreshold,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(score)
	},
}

func init() {
	scoreCmd.Flags().String("method", "", "Scoring method override: standard, weighted, competency or adaptive")
}
