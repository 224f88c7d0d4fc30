package provider

import (
	"encoding/json"
	"strings"
)

// DecodeContent parses a model response into a JSON object. Models sometimes
// wrap output in markdown code fences or lead with prose, so the decoder
// strips fences and falls back to the outermost brace-delimited object.
func DecodeContent(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	text = stripCodeFence(text)

	var content map[string]any
	if err := json.Unmarshal([]byte(text), &content); err == nil {
		return content, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, &Error{Class: ClassValidation, err: errNoJSONObject}
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &content); err != nil {
		return nil, &Error{Class: ClassValidation, err: err}
	}
	return content, nil
}

var errNoJSONObject = jsonObjectError{}

type jsonObjectError struct{}

func (jsonObjectError) Error() string { return "response contains no JSON object" }

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
