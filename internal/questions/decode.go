package questions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
)

var ErrInvalidAnswer = errors.New("invalid answer format")

// DecodeAnswer converts a raw JSON answer into the Answer shape expected by qType.
// An already tagged answer object ({"choice": 1}) is accepted for every type.
func DecodeAnswer(qType models.QuestionType, raw json.RawMessage) (models.Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.Answer{}, fmt.Errorf("%w: answer is empty", ErrInvalidAnswer)
	}

	if raw[0] == '{' && qType != models.Matching {
		var tagged models.Answer
		if err := json.Unmarshal(raw, &tagged); err != nil {
			return models.Answer{}, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		return tagged, nil
	}

	switch qType {
	case models.MultipleChoice:
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return models.Answer{}, fmt.Errorf("%w: multiple choice expects an option index", ErrInvalidAnswer)
		}
		return models.ChoiceAnswer(idx), nil
	case models.TrueFalse:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return models.Answer{}, fmt.Errorf("%w: true/false expects a boolean", ErrInvalidAnswer)
		}
		return models.BoolAnswer(b), nil
	case models.ShortAnswer, models.Essay:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return models.Answer{}, fmt.Errorf("%w: %s expects text", ErrInvalidAnswer, qType)
		}
		return models.TextAnswer(text), nil
	case models.Matching:
		return decodePairs(raw)
	default:
		return models.Answer{}, fmt.Errorf("%w: %s", ErrUnsupportedQuestion, qType)
	}
}

// decodePairs accepts either [{"left":..,"right":..}], {"left":"right"} or {"pairs":[...]}.
func decodePairs(raw json.RawMessage) (models.Answer, error) {
	if raw[0] == '[' {
		var pairs []models.MatchPair
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return models.Answer{}, fmt.Errorf("%w: matching expects pairs", ErrInvalidAnswer)
		}
		return models.PairsAnswer(pairs...), nil
	}

	var tagged models.Answer
	if err := json.Unmarshal(raw, &tagged); err == nil && len(tagged.Pairs) > 0 {
		return tagged, nil
	}

	var byLeft map[string]string
	if err := json.Unmarshal(raw, &byLeft); err != nil {
		return models.Answer{}, fmt.Errorf("%w: matching expects pairs", ErrInvalidAnswer)
	}
	lefts := make([]string, 0, len(byLeft))
	for left := range byLeft {
		lefts = append(lefts, left)
	}
	sort.Strings(lefts)
	pairs := make([]models.MatchPair, 0, len(lefts))
	for _, left := range lefts {
		pairs = append(pairs, models.MatchPair{Left: left, Right: byLeft[left]})
	}
	return models.PairsAnswer(pairs...), nil
}
