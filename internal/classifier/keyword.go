package classifier

import (
	"context"
	"strings"
)

// KeywordModel scores labels by how many of their keywords occur in the text.
// It needs no model server and backs up the remote models.
type KeywordModel struct {
	labels []LabelSpec
}

func NewKeywordModel(cfg LabelConfig) *KeywordModel {
	return &KeywordModel{labels: cfg.Labels}
}

func (m *KeywordModel) Name() string {
	return "keyword"
}

// Scores normalizes keyword hits so matched labels sum to 1. Text matching no
// keyword falls back to the first label with a zero score.
func (m *KeywordModel) Scores(_ context.Context, text string) ([]Score, error) {
	lower := strings.ToLower(text)

	hits := make([]int, len(m.labels))
	total := 0

	for i, label := range m.labels {
		for _, kw := range label.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				hits[i]++
				total++
			}
		}
	}

	scores := make([]Score, 0, len(m.labels))

	if total == 0 {
		if len(m.labels) > 0 {
			scores = append(scores, Score{Label: m.labels[0].Name, Score: 0})
		}

		return scores, nil
	}

	for i, label := range m.labels {
		if hits[i] == 0 {
			continue
		}

		scores = append(scores, Score{
			Label: label.Name,
			Score: float64(hits[i]) / float64(total),
		})
	}

	return scores, nil
}
