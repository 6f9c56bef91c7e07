package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

var errMalformedAnswer = errors.New("malformed answer")

// answerPayload is the decoded form of answer_data. Which field is set
// depends on the question type the payload was decoded for.
type answerPayload struct {
	OptionIDs []uint
	Text      string
}

// decodeAnswer reads answer_data for the given question type. Choice types
// take an array of option ids (numbers or numeric strings); identification
// takes a string.
func decodeAnswer(questionType models.QuestionType, raw json.RawMessage) (answerPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return answerPayload{}, errMalformedAnswer
	}

	switch questionType {
	case models.MultipleChoice, models.Checkbox:
		ids, err := decodeOptionIDs(raw)
		if err != nil {
			return answerPayload{}, err
		}
		return answerPayload{OptionIDs: ids}, nil
	case models.Identification:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return answerPayload{}, fmt.Errorf("%w: expected a string", errMalformedAnswer)
		}
		return answerPayload{Text: text}, nil
	default:
		return answerPayload{}, fmt.Errorf("%w: unsupported question type %q", errMalformedAnswer, questionType)
	}
}

func decodeOptionIDs(raw json.RawMessage) ([]uint, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var items []interface{}
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: expected an array of option ids", errMalformedAnswer)
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		var text string
		switch v := item.(type) {
		case json.Number:
			text = v.String()
		case string:
			text = strings.TrimSpace(v)
		default:
			return nil, fmt.Errorf("%w: option id must be a number", errMalformedAnswer)
		}

		id, err := strconv.ParseUint(text, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: invalid option id %q", errMalformedAnswer, text)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// calculatePercentage is earned/total as a percentage with two decimals.
// A zero total yields zero.
func calculatePercentage(earned, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return roundFloat(earned/total*100, 2)
}

func roundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
