package classifier

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LabelConfig is the candidate label set offered to the model and the rules that
// turn a predicted label into a risk level.
type LabelConfig struct {
	Labels      []LabelSpec `yaml:"labels"`
	RiskRules   []RiskRule  `yaml:"risk_rules"`
	DefaultRisk Risk        `yaml:"default_risk"`
}

type LabelSpec struct {
	Name     string   `yaml:"name"`
	Risk     Risk     `yaml:"risk"`
	Keywords []string `yaml:"keywords"`
}

// RiskRule assigns Risk to any label containing Match.
type RiskRule struct {
	Match string `yaml:"match"`
	Risk  Risk   `yaml:"risk"`
}

func DefaultLabels() LabelConfig {
	return LabelConfig{
		Labels: []LabelSpec{
			{Name: "dizziness", Risk: RiskMedium, Keywords: []string{"dizzy", "dizziness", "spinning", "lightheaded", "vertigo"}},
			{Name: "headache", Risk: RiskLow, Keywords: []string{"headache", "migraine", "head hurts"}},
			{Name: "nausea", Risk: RiskLow, Keywords: []string{"nausea", "nauseous", "queasy"}},
			{Name: "vomiting", Risk: RiskMedium, Keywords: []string{"vomit", "throwing up", "threw up"}},
			{Name: "fatigue", Risk: RiskLow, Keywords: []string{"tired", "fatigue", "exhausted", "weak"}},
			{Name: "fever", Risk: RiskMedium, Keywords: []string{"fever", "temperature", "chills"}},
			{Name: "rash", Risk: RiskMedium, Keywords: []string{"rash", "itch", "hives"}},
			{Name: "stomach pain", Risk: RiskLow, Keywords: []string{"stomach", "abdominal", "cramps"}},
			{Name: "insomnia", Risk: RiskLow, Keywords: []string{"insomnia", "can't sleep", "cannot sleep", "sleepless"}},
			{Name: "anxiety", Risk: RiskMedium, Keywords: []string{"anxiety", "anxious", "panic", "nervous"}},
			{Name: "cough", Risk: RiskLow, Keywords: []string{"cough", "wheez"}},
			{Name: "muscle pain", Risk: RiskLow, Keywords: []string{"muscle", "aches", "achy", "sore"}},
			{Name: "chest pain", Risk: RiskHigh, Keywords: []string{"chest", "heart", "palpitation"}},
		},
		RiskRules: []RiskRule{
			{Match: "nervous system disorder", Risk: RiskHigh},
			{Match: "cardiac disorder", Risk: RiskHigh},
			{Match: "skin disorder", Risk: RiskMedium},
			{Match: "gastrointestinal disorder", Risk: RiskLow},
		},
		DefaultRisk: RiskLow,
	}
}

// LoadLabels reads a YAML label config. Sections left out of the file keep
// their defaults.
func LoadLabels(path string) (LabelConfig, error) {
	defaults := DefaultLabels()

	raw, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read labels file: %w", err)
	}

	var cfg LabelConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return defaults, fmt.Errorf("parse labels file: %w", err)
	}

	if len(cfg.Labels) == 0 {
		cfg.Labels = defaults.Labels
	}

	if cfg.RiskRules == nil {
		cfg.RiskRules = defaults.RiskRules
	}

	if cfg.DefaultRisk == "" {
		cfg.DefaultRisk = defaults.DefaultRisk
	}

	if err := cfg.validate(); err != nil {
		return defaults, err
	}

	return cfg, nil
}

func (c LabelConfig) validate() error {
	seen := make(map[string]bool, len(c.Labels))

	for _, label := range c.Labels {
		name := strings.TrimSpace(label.Name)
		if name == "" {
			return errors.New("label with empty name")
		}

		if seen[strings.ToLower(name)] {
			return fmt.Errorf("duplicate label %q", name)
		}

		seen[strings.ToLower(name)] = true
	}

	return nil
}

func (c LabelConfig) Names() []string {
	names := make([]string, 0, len(c.Labels))
	for _, label := range c.Labels {
		names = append(names, label.Name)
	}

	return names
}

// RiskFor resolves a label's risk: an exact label entry wins, then the first
// matching rule, then the default.
func (c LabelConfig) RiskFor(label string) Risk {
	normalized := strings.ToLower(strings.TrimSpace(label))

	for _, spec := range c.Labels {
		if strings.ToLower(spec.Name) == normalized && spec.Risk != "" {
			return spec.Risk
		}
	}

	for _, rule := range c.RiskRules {
		if strings.Contains(normalized, strings.ToLower(rule.Match)) {
			return rule.Risk
		}
	}

	if c.DefaultRisk == "" {
		return RiskLow
	}

	return c.DefaultRisk
}
