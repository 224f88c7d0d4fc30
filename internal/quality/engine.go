package quality

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/model"
	"github.com/sells-group/bizclone/internal/schema"
)

// Check names used as CheckScores keys.
const (
	CheckStructure     = "structure"
	CheckCompleteness  = "completeness"
	CheckSpecificity   = "specificity"
	CheckActionability = "actionability"
	CheckPlaceholders  = "placeholders"
	CheckEstimates     = "estimates"
)

// BusinessContext is what the specificity check matches content against.
type BusinessContext struct {
	Name string
	URL  string
}

// Domain returns the bare host of the business URL, without a www prefix.
func (b BusinessContext) Domain() string {
	u, err := url.Parse(b.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// Engine scores generated content. Checks are independent; the composite
// is their mean.
type Engine struct {
	cfg          Config
	placeholders []*regexp.Regexp
}

// NewEngine compiles the configured placeholder patterns once.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{cfg: cfg}
	for _, p := range cfg.PlaceholderPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("quality: bad placeholder pattern %q: %w", p, err)
		}
		e.placeholders = append(e.placeholders, re)
	}
	return e, nil
}

// Score runs all six checks against content and returns the composite
// verdict. Structure and completeness are mandatory: content never passes
// without them, whatever the composite.
func (e *Engine) Score(kind schema.Kind, content map[string]any, biz BusinessContext) model.QualityResult {
	result := model.QualityResult{
		CheckScores: make(map[string]float64, 6),
	}

	validation := schema.Validate(kind, content)

	structure := 0.0
	if validation.Valid {
		structure = 1.0
	} else {
		result.Issues = append(result.Issues, validation.Errors...)
	}
	result.CheckScores[CheckStructure] = structure

	completeness := e.scoreCompleteness(kind, content, &result)
	specificity := e.scoreSpecificity(content, biz, &result)
	actionability := e.scoreActionability(content, &result)
	placeholders := e.scorePlaceholders(content, &result)
	estimates := e.scoreEstimates(kind, content, &result)

	result.CheckScores[CheckCompleteness] = completeness
	result.CheckScores[CheckSpecificity] = specificity
	result.CheckScores[CheckActionability] = actionability
	result.CheckScores[CheckPlaceholders] = placeholders
	result.CheckScores[CheckEstimates] = estimates

	sum := 0.0
	for _, s := range result.CheckScores {
		sum += s
	}
	result.Score = sum / float64(len(result.CheckScores))
	result.Passed = validation.Valid && completeness == 1.0 && result.Score >= e.cfg.PassThreshold

	zap.L().Debug("quality: scored content",
		zap.String("kind", string(kind)),
		zap.Float64("composite", result.Score),
		zap.Bool("passed", result.Passed),
		zap.Int("issues", len(result.Issues)),
	)

	return result
}

// scoreCompleteness verifies that every required string/list field the
// shape declares is present and non-empty. Contributes 0 or 1.
func (e *Engine) scoreCompleteness(kind schema.Kind, content map[string]any, result *model.QualityResult) float64 {
	shape, ok := schema.ShapeFor(kind)
	if !ok {
		return 0
	}
	res := schema.ValidateShape(shape, content)
	if res.Valid {
		return 1
	}
	if legacy, hasLegacy := schema.LegacyShapeFor(kind); hasLegacy {
		if schema.ValidateShape(legacy, content).Valid {
			return 1
		}
	}
	result.Issues = append(result.Issues, "completeness: required fields empty or missing")
	return 0
}

// scoreSpecificity checks that the content talks about this business rather
// than a generic one. Generic vocabulary downgrades to a warning-level
// issue instead of failing the check outright.
func (e *Engine) scoreSpecificity(content map[string]any, biz BusinessContext, result *model.QualityResult) float64 {
	text := strings.ToLower(flatten(content))

	mentions := false
	if name := strings.ToLower(biz.Name); name != "" && strings.Contains(text, name) {
		mentions = true
	}
	if domain := biz.Domain(); domain != "" && strings.Contains(text, domain) {
		mentions = true
	}

	generic := false
	for _, word := range e.cfg.GenericVocabulary {
		if strings.Contains(text, strings.ToLower(word)) {
			generic = true
			result.Issues = append(result.Issues,
				fmt.Sprintf("specificity: generic vocabulary %q present (warning)", word))
			break
		}
	}

	switch {
	case mentions && !generic:
		return 1
	case mentions && generic:
		return 0.7
	default:
		result.Issues = append(result.Issues, "specificity: content never references the business name or domain")
		return 0
	}
}

// scoreActionability measures the fraction of recommendation items that
// contain a recognized action verb.
func (e *Engine) scoreActionability(content map[string]any, result *model.QualityResult) float64 {
	var total, actionable int
	for _, field := range e.cfg.RecommendationFields {
		items, ok := content[field].([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			total++
			if e.containsActionVerb(s) {
				actionable++
			}
		}
	}
	if total == 0 {
		return 1 // nothing recommendation-shaped to judge
	}

	ratio := float64(actionable) / float64(total)
	if ratio >= e.cfg.ActionableRatio {
		return 1
	}
	result.Issues = append(result.Issues,
		fmt.Sprintf("actionability: only %d of %d recommendation items contain an action verb", actionable, total))
	return ratio
}

func (e *Engine) containsActionVerb(s string) bool {
	lower := strings.ToLower(s)
	for _, verb := range e.cfg.ActionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

// scorePlaceholders scans for bracketed fill-ins, TBD markers and sample
// URLs. Any hit caps the check at 0.5; repeated hits push it lower.
func (e *Engine) scorePlaceholders(content map[string]any, result *model.QualityResult) float64 {
	text := flatten(content)

	hits := 0
	for _, re := range e.placeholders {
		if m := re.FindString(text); m != "" {
			hits++
			result.Issues = append(result.Issues,
				fmt.Sprintf("placeholders: found %q", m))
		}
	}
	switch {
	case hits == 0:
		return 1
	case hits == 1:
		return 0.5
	default:
		return 0.25
	}
}

// scoreEstimates range-checks bounded numerics and requires a number plus a
// recognizable unit in money/duration strings. A digit-less money or
// duration string fails the whole check; otherwise the configured fraction
// of sub-checks must pass.
func (e *Engine) scoreEstimates(kind schema.Kind, content map[string]any, result *model.QualityResult) float64 {
	shape, ok := schema.ShapeFor(kind)
	if !ok {
		return 0
	}
	paths := schema.EstimateFields(shape)
	if len(paths) == 0 {
		return 1
	}

	var total, passed int
	vague := false
	for _, ep := range paths {
		for _, val := range schema.Lookup(content, ep) {
			total++
			switch ep.Unit {
			case schema.EstimateMoney, schema.EstimateDuration:
				s, isStr := val.(string)
				if !isStr {
					result.Issues = append(result.Issues,
						fmt.Sprintf("estimates: %s is not a string", ep.Path))
					continue
				}
				if !containsDigit(s) {
					vague = true
					result.Issues = append(result.Issues,
						fmt.Sprintf("estimates: %s = %q has no number", ep.Path, s))
					continue
				}
				if !hasUnit(s, ep.Unit) {
					result.Issues = append(result.Issues,
						fmt.Sprintf("estimates: %s = %q lacks a recognizable unit", ep.Path, s))
					continue
				}
				passed++
			default:
				n, isNum := toNumber(val)
				if !isNum {
					result.Issues = append(result.Issues,
						fmt.Sprintf("estimates: %s is not numeric", ep.Path))
					continue
				}
				if (ep.Min != nil && n < *ep.Min) || (ep.Max != nil && n > *ep.Max) {
					result.Issues = append(result.Issues,
						fmt.Sprintf("estimates: %s = %g out of declared bounds", ep.Path, n))
					continue
				}
				passed++
			}
		}
	}
	if total == 0 {
		return 1
	}
	if vague {
		return 0
	}

	ratio := float64(passed) / float64(total)
	if ratio >= e.cfg.EstimatePassRatio {
		return 1
	}
	return ratio
}

var moneyUnits = []string{"$", "usd", "dollar", "€", "£", "k", "m"}
var durationUnits = []string{"day", "week", "month", "year", "hour", "hr", "sprint", "quarter", "q1", "q2", "q3", "q4"}

func hasUnit(s string, unit schema.EstimateUnit) bool {
	lower := strings.ToLower(s)
	units := moneyUnits
	if unit == schema.EstimateDuration {
		units = durationUnits
	}
	for _, u := range units {
		if strings.Contains(lower, u) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// flatten renders the string leaves of a decoded JSON value as one blob for
// keyword scanning.
func flatten(v any) string {
	var sb strings.Builder
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case string:
			sb.WriteString(n)
			sb.WriteByte('\n')
		case map[string]any:
			for _, val := range n {
				walk(val)
			}
		case []any:
			for _, val := range n {
				walk(val)
			}
		}
	}
	walk(v)
	return sb.String()
}
