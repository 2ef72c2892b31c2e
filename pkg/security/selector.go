package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSelectorLength caps selector size. Real selectors are short;
// anything longer is treated as an injection attempt.
const maxSelectorLength = 200

// Substrings that have no place inside a CSS selector. Selectors
// containing them are rejected outright.
var selectorInjectionPatterns = []string{
	"javascript:",
	"<script",
	"expression(",
}

// SanitizeSelector validates a selector before it is handed to the
// browser. Selectors arrive from model output and page discovery, so
// they are treated as untrusted. It returns the trimmed selector, or a
// *Violation describing why it was rejected.
func SanitizeSelector(selector string) (string, error) {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return "", &Violation{
			Type:    ViolationSelector,
			Message: "selector is empty",
		}
	}

	if utf8.RuneCountInString(trimmed) > maxSelectorLength {
		return "", &Violation{
			Type:    ViolationSelector,
			Message: fmt.Sprintf("selector exceeds %d characters", maxSelectorLength),
			Details: map[string]interface{}{"length": utf8.RuneCountInString(trimmed)},
		}
	}

	for _, r := range trimmed {
		if r < 0x20 || r == 0x7f {
			return "", &Violation{
				Type:    ViolationSelector,
				Message: "selector contains control characters",
			}
		}
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range selectorInjectionPatterns {
		if strings.Contains(lower, pattern) {
			return "", &Violation{
				Type:    ViolationSelector,
				Message: fmt.Sprintf("selector contains %q", pattern),
				Details: map[string]interface{}{"selector": trimmed},
			}
		}
	}

	if i := strings.IndexAny(trimmed, "<{};"); i >= 0 {
		return "", &Violation{
			Type:    ViolationSelector,
			Message: fmt.Sprintf("selector contains forbidden character %q", trimmed[i]),
			Details: map[string]interface{}{"selector": trimmed},
		}
	}

	if err := scanSelector(trimmed); err != nil {
		return "", &Violation{
			Type:    ViolationSelector,
			Message: fmt.Sprintf("selector has %s", err),
			Details: map[string]interface{}{"selector": trimmed},
		}
	}

	return trimmed, nil
}

// scanSelector checks quote and parenthesis balance. Quoted sections
// are opaque, so a parenthesis inside an attribute string does not
// affect nesting depth. An unterminated quote or parenthesis can escape
// the string context when the selector is spliced into a page script.
func scanSelector(s string) error {
	var inSingle, inDouble bool
	depth := 0

	for _, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
			// Quoted content is opaque.
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return errors.New("unbalanced parentheses")
			}
		}
	}

	if inSingle || inDouble {
		return errors.New("unbalanced quotes")
	}
	if depth != 0 {
		return errors.New("unbalanced parentheses")
	}
	return nil
}
