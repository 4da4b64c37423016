// Package classifier turns free-text symptom descriptions into ranked symptom
// categories with a risk level.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/medaware/medaware"
)

const (
	topPredictions = 3
	// Secondary predictions below this score do not raise the overall risk.
	riskScoreFloor = 0.2
)

var ErrEmptyText = errors.New("symptom text cannot be empty")

// Score is one label's raw model output.
type Score struct {
	Label string
	Score float64
}

// Model produces label scores for a text. Implementations call out to a model
// server or run locally.
type Model interface {
	Name() string
	Scores(ctx context.Context, text string) ([]Score, error)
}

type Prediction struct {
	Label string  `json:"label" bson:"label"`
	Score float64 `json:"score" bson:"score"`
	Risk  Risk    `json:"risk" bson:"risk"`
}

type Result struct {
	PredictedSymptom string       `json:"predicted_symptom"`
	Confidence       float64      `json:"probability"`
	TopPredictions   []Prediction `json:"top_predictions"`
	OverallRisk      Risk         `json:"overall_risk"`
	Source           string       `json:"source"`
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

type classifier struct {
	model    Model
	fallback Model
	labels   LabelConfig
	logger   medaware.LoggerService
}

type Option func(*classifier)

// WithFallback answers with m whenever the primary model fails.
func WithFallback(m Model) Option {
	return func(c *classifier) {
		c.fallback = m
	}
}

func New(model Model, labels LabelConfig, logger medaware.LoggerService, opts ...Option) Classifier {
	c := &classifier{
		model:  model,
		labels: labels,
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *classifier) Classify(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyText
	}

	source := c.model.Name()

	scores, err := c.model.Scores(ctx, text)
	if err != nil {
		if c.fallback == nil {
			return Result{}, fmt.Errorf("symptom classification failed: %w", err)
		}

		c.logger.Warn("classifier model failed, using fallback",
			"model", c.model.Name(), "fallback", c.fallback.Name(), "error", err)

		scores, err = c.fallback.Scores(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("fallback classification failed: %w", err)
		}

		source = c.fallback.Name()
	}

	if len(scores) == 0 {
		return Result{}, fmt.Errorf("model %s returned no labels", source)
	}

	return c.buildResult(scores, source), nil
}

func (c *classifier) buildResult(scores []Score, source string) Result {
	ranked := make([]Score, len(scores))
	copy(ranked, scores)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	n := min(topPredictions, len(ranked))
	top := make([]Prediction, 0, n)
	for _, s := range ranked[:n] {
		top = append(top, Prediction{
			Label: s.Label,
			Score: s.Score,
			Risk:  c.labels.RiskFor(s.Label),
		})
	}

	overall := top[0].Risk
	for _, p := range top[1:] {
		if p.Score >= riskScoreFloor {
			overall = maxRisk(overall, p.Risk)
		}
	}

	return Result{
		PredictedSymptom: top[0].Label,
		Confidence:       top[0].Score,
		TopPredictions:   top,
		OverallRisk:      overall,
		Source:           source,
	}
}
