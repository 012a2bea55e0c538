// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Numbers without a country prefix are assumed to be domestic.
const defaultRegion = "GB"

// NormalizeE164 formats a phone number to E.164. Input that cannot be parsed
// or is not a valid number comes back trimmed but otherwise untouched, so a
// malformed directory entry still renders rather than disappearing.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
