package utils

import "strings"

// NormalizePhone strips whitespace from a destination number and prefixes
// the default country code when no international prefix is present.
// Numbers already starting with '+' are left as-is.
func NormalizePhone(number, countryPrefix string) string {
	formatted := strings.ReplaceAll(strings.TrimSpace(number), " ", "")
	if formatted == "" {
		return ""
	}

	if !strings.HasPrefix(formatted, "+") {
		formatted = countryPrefix + formatted
	}

	return formatted
}
