package classifier

import (
	"fmt"
	"net/http"

	"go.uber.org/fx"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/config"
)

type Params struct {
	fx.In

	Config config.Config
	Logger medaware.LoggerService
}

type ModuleResult struct {
	fx.Out

	Classifier Classifier
}

// NewFromConfig builds the classifier selected by CLASSIFIER_MODE.
func NewFromConfig(cfg config.ClassifierConfig, logger medaware.LoggerService) (Classifier, error) {
	labels := DefaultLabels()

	if cfg.LabelsFile != "" {
		loaded, err := LoadLabels(cfg.LabelsFile)
		if err != nil {
			return nil, err
		}

		labels = loaded
	}

	keyword := NewKeywordModel(labels)
	client := &http.Client{Timeout: cfg.Timeout}

	var model Model

	switch cfg.Mode {
	case config.ClassifierKeyword:
		return New(keyword, labels, logger), nil
	case config.ClassifierZeroShot:
		model = NewZeroShotModel(cfg.Endpoint, cfg.APIToken, cfg.Model, labels.Names(), client)
	case config.ClassifierFineTuned:
		var labelMap map[string]string

		if cfg.LabelMapFile != "" {
			loaded, err := LoadLabelMap(cfg.LabelMapFile)
			if err != nil {
				return nil, err
			}

			labelMap = loaded
		}

		model = NewFineTunedModel(cfg.Endpoint, cfg.APIToken, cfg.Model, labelMap, client)
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", cfg.Mode)
	}

	var opts []Option
	if cfg.Fallback {
		opts = append(opts, WithFallback(keyword))
	}

	logger.Info("Symptom classifier ready", "model", model.Name(), "labels", len(labels.Labels), "fallback", cfg.Fallback)

	return New(model, labels, logger, opts...), nil
}

func NewClassifier(params Params) (ModuleResult, error) {
	var result ModuleResult

	c, err := NewFromConfig(params.Config.Classifier, params.Logger)
	if err != nil {
		return result, fmt.Errorf("failed to build classifier: %w", err)
	}

	result.Classifier = c

	return result, nil
}

var Module = fx.Options(
	fx.Provide(NewClassifier),
)
