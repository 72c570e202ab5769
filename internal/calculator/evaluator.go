package calculator

import (
	"strings"
	"unicode"
)

// deniedSubstrings are rejected anywhere in the lower-cased expression. The
// character whitelist already excludes them for ASCII input; the list is kept
// fixed and is not a sandbox.
var deniedSubstrings = []string{"__", "import", "exec", "eval", "open", "file"}

// ValidationError reports an expression the caller must fix.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

const (
	msgInvalidChars = "Invalid characters in expression"
	msgDangerous    = "Potentially dangerous expression"
	msgInvalidMath  = "Invalid mathematical expression: "
)

// Evaluate validates expression and computes its value.
//
// Whitespace is ignored. Only digits, '.', '+', '-', '*', '/' and parentheses
// are accepted; evaluation faults such as division by zero or malformed
// syntax are returned as *ValidationError.
func Evaluate(expression string) (float64, error) {
	stripped := stripWhitespace(expression)

	if !hasOnlyAllowedChars(stripped) {
		return 0, &ValidationError{Msg: msgInvalidChars}
	}

	if containsDenied(stripped) {
		return 0, &ValidationError{Msg: msgDangerous}
	}

	result, err := newParser(stripped).parse()
	if err != nil {
		return 0, &ValidationError{Msg: msgInvalidMath + err.Error()}
	}

	return result, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// hasOnlyAllowedChars reports whether s is non-empty and made only of
// arithmetic characters.
func hasOnlyAllowedChars(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune("+-*/().", r):
		default:
			return false
		}
	}
	return true
}

func containsDenied(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range deniedSubstrings {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
