package schema

import (
	"fmt"
	"net/url"

	"github.com/sells-group/bizclone/internal/model"
)

// Validate checks content against the descriptor registered for kind.
// The initial analysis is tried against the enhanced shape first and falls
// back to the legacy shape; a legacy pass is valid with a warning attached.
func Validate(kind Kind, content map[string]any) model.ValidationResult {
	shape, ok := ShapeFor(kind)
	if !ok {
		return model.ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("no shape registered for kind %q", kind)},
		}
	}

	result := ValidateShape(shape, content)
	if result.Valid {
		return result
	}

	legacy, hasLegacy := LegacyShapeFor(kind)
	if !hasLegacy {
		return result
	}

	legacyResult := ValidateShape(legacy, content)
	if !legacyResult.Valid {
		// Surface the enhanced shape's errors; they are the authoritative
		// requirement.
		return result
	}
	legacyResult.Warnings = append(legacyResult.Warnings,
		fmt.Sprintf("content matches legacy shape %q; enhanced fields missing", legacy.Name))
	return legacyResult
}

// ValidateShape checks content against a specific descriptor.
func ValidateShape(shape Shape, content map[string]any) model.ValidationResult {
	result := model.ValidationResult{Valid: true}
	if content == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "content is null")
		return result
	}
	validateFields("", shape.Fields, content, &result)
	result.Valid = len(result.Errors) == 0
	return result
}

func validateFields(prefix string, fields []Field, obj map[string]any, result *model.ValidationResult) {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		val, present := obj[f.Name]
		if !present || val == nil {
			if f.Optional {
				result.Warnings = append(result.Warnings, fmt.Sprintf("optional field %s absent", path))
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("required field %s missing or null", path))
			continue
		}
		validateValue(path, f, val, result)
	}
}

func validateValue(path string, f Field, val any, result *model.ValidationResult) {
	switch f.Type {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s must be a string", path))
			return
		}
		if s == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s must be non-empty", path))
			return
		}
		if f.URL && !isAbsoluteURL(s) {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s is not a well-formed URL: %q", path, s))
		}

	case TypeNumber:
		n, ok := toFloat(val)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s must be a number", path))
			return
		}
		// Out-of-range values are hard errors, never clamped.
		if f.Min != nil && n < *f.Min {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s = %g below minimum %g", path, n, *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s = %g above maximum %g", path, n, *f.Max))
		}

	case TypeList:
		items, ok := val.([]any)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s must be a list", path))
			return
		}
		if len(items) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s must be non-empty", path))
			return
		}
		if len(f.Elem) > 0 {
			for i, item := range items {
				elemObj, ok := item.(map[string]any)
				if !ok {
					result.Errors = append(result.Errors, fmt.Sprintf("field %s[%d] must be an object", path, i))
					continue
				}
				validateFields(fmt.Sprintf("%s[%d]", path, i), f.Elem, elemObj, result)
			}
		}

	case TypeObject:
		obj, ok := val.(map[string]any)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("field %s must be an object", path))
			return
		}
		validateFields(path, f.Subfields, obj, result)
	}
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// toFloat accepts the numeric types encoding/json may produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Lookup resolves a dotted EstimatePath inside content. List-element paths
// ("milestones[].estimated_time") yield one value per element. Missing
// segments yield no values.
func Lookup(content map[string]any, path EstimatePath) []any {
	return lookupPath(content, splitPath(path.Path))
}

func splitPath(path string) []string {
	var parts []string
	cur := ""
	for _, r := range path {
		if r == '.' {
			parts = append(parts, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	return append(parts, cur)
}

func lookupPath(node any, parts []string) []any {
	if len(parts) == 0 {
		return []any{node}
	}
	head, rest := parts[0], parts[1:]

	if len(head) > 2 && head[len(head)-2:] == "[]" {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		list, ok := obj[head[:len(head)-2]].([]any)
		if !ok {
			return nil
		}
		var out []any
		for _, item := range list {
			out = append(out, lookupPath(item, rest)...)
		}
		return out
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	val, ok := obj[head]
	if !ok {
		return nil
	}
	return lookupPath(val, rest)
}
