// Package validate implements the quality gate for candidate experience
// records. Validation is pure and deterministic: the same record always
// produces the same result, across retries and across maintenance passes.
package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleSet holds the tunable validation rules. Operators can tighten the
// rules via .lore/rules.yaml without recompiling; the maintenance pass then
// removes records that no longer satisfy them.
type RuleSet struct {
	ForbiddenTechnologies []string `yaml:"forbidden_technologies"`
	ForbiddenCategories   []string `yaml:"forbidden_categories"`
	BoilerplatePhrases    []string `yaml:"boilerplate_phrases"`

	MinContentLength        int     `yaml:"min_content_length"`
	MinQualityScore         float64 `yaml:"min_quality_score"`
	MinContributorIDLength  int     `yaml:"min_contributor_id_length"`
	MinTechnologyNameLength int     `yaml:"min_technology_name_length"`
	MinUniqueTokenRatio     float64 `yaml:"min_unique_token_ratio"`
}

// DefaultRuleSet returns the compiled-in rules.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		ForbiddenTechnologies: []string{
			"test", "testing", "temp", "tmp", "example", "sample", "demo",
			"placeholder", "mock", "fake", "dummy", "unknown", "foo", "bar",
		},
		ForbiddenCategories: []string{
			"test", "testing", "temp", "example", "demo", "sample",
			"placeholder", "unknown", "misc",
		},
		BoilerplatePhrases: []string{
			"lorem ipsum",
			"placeholder text",
			"this is a test",
			"insert text here",
			"to be determined",
			"fill me in",
			"sample content",
			"example content",
		},
		MinContentLength:        50,
		MinQualityScore:         7.5,
		MinContributorIDLength:  6,
		MinTechnologyNameLength: 3,
		MinUniqueTokenRatio:     0.5,
	}
}

// LoadRuleSet reads a YAML rule file and overlays it on the defaults.
// Fields absent from the file keep their default values.
func LoadRuleSet(path string) (RuleSet, error) {
	rules := DefaultRuleSet()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rule file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return DefaultRuleSet(), fmt.Errorf("failed to parse rule file: %w", err)
	}

	if err := rules.check(); err != nil {
		return DefaultRuleSet(), fmt.Errorf("invalid rule file %s: %w", path, err)
	}
	return rules, nil
}

// check rejects rule values that would make the gate meaningless.
func (r RuleSet) check() error {
	if r.MinContentLength < 0 {
		return fmt.Errorf("min_content_length must be >= 0, got %d", r.MinContentLength)
	}
	if r.MinQualityScore < 0 || r.MinQualityScore > 10 {
		return fmt.Errorf("min_quality_score must be in [0, 10], got %g", r.MinQualityScore)
	}
	if r.MinUniqueTokenRatio < 0 || r.MinUniqueTokenRatio > 1 {
		return fmt.Errorf("min_unique_token_ratio must be in [0, 1], got %g", r.MinUniqueTokenRatio)
	}
	return nil
}
