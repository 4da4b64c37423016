package classifier

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

func (r Risk) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// ParseRisk accepts a risk level in any letter case.
func ParseRisk(s string) (Risk, error) {
	switch r := Risk(strings.ToUpper(strings.TrimSpace(s))); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", s)
	}
}

func (r *Risk) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseRisk(value.Value)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

func maxRisk(a, b Risk) Risk {
	if b.rank() > a.rank() {
		return b
	}

	return a
}
