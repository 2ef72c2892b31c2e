package parser

import "strings"

// NormalizeOptional coerces the "effectively empty" spellings that models
// use for optional fields into an explicit nil. A missing key, a null, an
// empty list, and the literal strings "null" or "none" (any casing) all
// become nil, so downstream code has exactly one absent case to handle.
func NormalizeOptional(data map[string]interface{}, keys ...string) {
	for _, key := range keys {
		value, ok := data[key]
		if !ok || value == nil {
			data[key] = nil
			continue
		}

		switch v := value.(type) {
		case string:
			trimmed := strings.TrimSpace(v)
			if strings.EqualFold(trimmed, "null") || strings.EqualFold(trimmed, "none") {
				data[key] = nil
			}
		case []interface{}:
			if len(v) == 0 {
				data[key] = nil
			}
		}
	}
}
