// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no international prefix.
const DefaultRegion = "IT"

// matchKeyDigits is how many trailing digits identify a number for matching.
// Country prefixes and trunk zeros fall outside this window.
const matchKeyDigits = 10

// Digits strips every non-digit character. Non-ASCII digits are mapped to ASCII.
func Digits(input string) string {
	return phonenumbers.NormalizeDigitsOnly(input)
}

// MatchKey returns the comparison key of a phone number: its last 10 digits.
// Two numbers sharing the same trailing 10 digits collapse to the same key.
func MatchKey(input string) string {
	digits := Digits(input)
	if len(digits) > matchKeyDigits {
		return digits[len(digits)-matchKeyDigits:]
	}
	return digits
}

// NormalizeE164InRegion formats a phone number to E.164 for the given region
// (DefaultRegion when empty). If parsing fails or the number is invalid, it
// returns the trimmed input.
func NormalizeE164InRegion(input, region string) string {
	if region == "" {
		region = DefaultRegion
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
