// Package quality scores generated content with independent heuristic
// checks and gates persistence on the composite result.
package quality

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config holds the scoring threshold and the keyword lists the checks
// match against. Lists are overridable from YAML; the compiled-in defaults
// are used when no file is given.
type Config struct {
	// PassThreshold is the minimum composite score for acceptance.
	PassThreshold float64 `yaml:"pass_threshold" mapstructure:"pass_threshold"`

	// ActionVerbs mark an item as actionable when any appears in it.
	ActionVerbs []string `yaml:"action_verbs" mapstructure:"action_verbs"`

	// ActionableRatio is the minimum fraction of recommendation items that
	// must contain an action verb.
	ActionableRatio float64 `yaml:"actionable_ratio" mapstructure:"actionable_ratio"`

	// GenericVocabulary downgrades the specificity check to a warning.
	GenericVocabulary []string `yaml:"generic_vocabulary" mapstructure:"generic_vocabulary"`

	// PlaceholderPatterns are regexes whose match caps the placeholder
	// check at 0.5.
	PlaceholderPatterns []string `yaml:"placeholder_patterns" mapstructure:"placeholder_patterns"`

	// RecommendationFields name the list fields scored for actionability.
	RecommendationFields []string `yaml:"recommendation_fields" mapstructure:"recommendation_fields"`

	// EstimatePassRatio is the minimum fraction of estimate sub-checks
	// that must pass.
	EstimatePassRatio float64 `yaml:"estimate_pass_ratio" mapstructure:"estimate_pass_ratio"`
}

// DefaultConfig returns the compiled-in scoring configuration.
func DefaultConfig() Config {
	return Config{
		PassThreshold:   0.7,
		ActionableRatio: 0.7,
		ActionVerbs: []string{
			"create", "build", "implement", "test", "launch", "write",
			"design", "deploy", "measure", "validate", "interview",
			"publish", "automate", "integrate", "hire", "ship", "set up",
			"run", "add", "define", "negotiate", "partner",
		},
		GenericVocabulary: []string{
			"example", "your business", "your company", "tbd",
			"insert here", "placeholder", "to be determined",
			"lorem ipsum", "some business",
		},
		PlaceholderPatterns: []string{
			`\[[^\]]{1,80}\]`, // bracketed fill-ins like [insert business name here]
			`(?i)\btbd\b`,
			`(?i)\bxxx+\b`,
			`(?i)https?://(www\.)?example\.(com|org|net)`,
			`(?i)lorem ipsum`,
		},
		RecommendationFields: []string{
			"next_actions", "launch_tactics", "quick_wins", "suggestions",
			"content_strategy", "growth_levers", "mitigations",
			"differentiation", "twelve_month_goals",
		},
		EstimatePassRatio: 0.8,
	}
}

// LoadConfig reads scoring config from a YAML file, filling gaps with
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "quality: read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, eris.Wrap(err, "quality: parse config")
	}

	if cfg.PassThreshold <= 0 || cfg.PassThreshold > 1 {
		cfg.PassThreshold = 0.7
	}
	if cfg.ActionableRatio <= 0 || cfg.ActionableRatio > 1 {
		cfg.ActionableRatio = 0.7
	}
	if cfg.EstimatePassRatio <= 0 || cfg.EstimatePassRatio > 1 {
		cfg.EstimatePassRatio = 0.8
	}
	return cfg, nil
}
