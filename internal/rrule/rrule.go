// Package rrule normalizes and validates RFC-5545 recurrence rules. Parsing
// is delegated to the rrule-go library; this package only owns the prefix
// convention: rules are stored without the "RRULE:" line prefix and the
// prefix is re-added exactly once when a rule is sent to the provider.
package rrule

import (
	"fmt"
	"strings"

	rrulego "github.com/teambition/rrule-go"
)

const prefix = "RRULE:"

// Normalize trims the input, strips a leading case-insensitive "RRULE:"
// prefix, and validates the remaining rule body.
func Normalize(input string) (string, error) {
	normalized := StripPrefix(strings.TrimSpace(input))
	if normalized == "" {
		return "", fmt.Errorf("empty recurrence rule")
	}
	if _, err := rrulego.StrToRRule(normalized); err != nil {
		return "", fmt.Errorf("invalid recurrence rule %q: %w", input, err)
	}
	return normalized, nil
}

// StripPrefix removes a leading case-insensitive "RRULE:" token, if present.
func StripPrefix(s string) string {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}

// ToRecurrence converts a stored rule body into the provider's
// recurrence-lines representation. An empty rule yields nil (no recurrence
// field at all; clearing uses an explicit empty list instead).
func ToRecurrence(rule string) ([]string, error) {
	if rule == "" {
		return nil, nil
	}
	normalized, err := Normalize(rule)
	if err != nil {
		return nil, err
	}
	return []string{prefix + normalized}, nil
}

// FromRecurrence extracts the stored rule body from the provider's
// recurrence lines: the first line starting with the case-insensitive
// "RRULE:" token, prefix stripped. Empty when the event is non-recurring.
func FromRecurrence(lines []string) string {
	for _, line := range lines {
		if len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
			return line[len(prefix):]
		}
	}
	return ""
}
