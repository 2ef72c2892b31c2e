package parser

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when no parseable JSON object can be found
// in a response.
var ErrNoJSONObject = errors.New("no valid JSON object found in response")

// jsonObjectPattern matches JSON object candidates, tolerating one level
// of nesting. Deeper objects fall through to the bracket-bound strategy.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// ExtractJSONBytes locates the first parseable JSON object in text and
// returns its raw bytes, ready for unmarshaling into a typed struct.
//
// Models rarely return bare JSON even when asked to. Three strategies are
// tried in order:
//  1. the whole trimmed text is a JSON object
//  2. each regex-matched object candidate, first one that parses wins
//  3. the span from the first '{' to the last '}'
func ExtractJSONBytes(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoJSONObject
	}

	if candidate := []byte(trimmed); isJSONObject(candidate) {
		return candidate, nil
	}

	for _, match := range jsonObjectPattern.FindAllString(trimmed, -1) {
		if candidate := []byte(match); isJSONObject(candidate) {
			return candidate, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		if candidate := []byte(trimmed[start : end+1]); isJSONObject(candidate) {
			return candidate, nil
		}
	}

	return nil, ErrNoJSONObject
}

// ExtractJSON locates the first parseable JSON object in text and returns
// it as a generic map. See ExtractJSONBytes for the extraction strategies.
func ExtractJSON(text string) (map[string]interface{}, error) {
	raw, err := ExtractJSONBytes(text)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, ErrNoJSONObject
	}
	return result, nil
}

func isJSONObject(data []byte) bool {
	var probe map[string]interface{}
	return json.Unmarshal(data, &probe) == nil
}
