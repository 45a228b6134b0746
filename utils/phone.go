// Package utils provides utility functions for the application.
package utils

import (
	"strings"
)

// Suffixes a WhatsApp-style gateway appends to sender identifiers. The "@lid"
// form is a masked identifier, not a phone number, and must never be used for
// phone-based matching or as an outbound recipient.
const (
	jidSuffixUser   = "@s.whatsapp.net"
	jidSuffixLegacy = "@c.us"
	jidSuffixMasked = "@lid"
	jidSuffixGroup  = "@g.us"
	jidSuffixBcast  = "@broadcast"
	jidSuffixNews   = "@newsletter"
)

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripJID removes the gateway suffix from a raw sender identifier and reports
// whether the identifier is masked (a "@lid" form). The returned identifier for
// masked senders is the bare masked id, still unusable as a phone number.
func StripJID(raw string) (id string, masked bool) {
	switch {
	case strings.HasSuffix(raw, jidSuffixMasked):
		return strings.TrimSuffix(raw, jidSuffixMasked), true
	case strings.HasSuffix(raw, jidSuffixUser):
		return strings.TrimSuffix(raw, jidSuffixUser), false
	case strings.HasSuffix(raw, jidSuffixLegacy):
		return strings.TrimSuffix(raw, jidSuffixLegacy), false
	default:
		return raw, false
	}
}

// IsUnroutableIdentifier reports whether raw is a masked, group, broadcast, or
// channel identifier. The gateway rejects these, so they must be caught before
// any network I/O.
func IsUnroutableIdentifier(raw string) bool {
	return strings.Contains(raw, jidSuffixMasked) ||
		strings.Contains(raw, jidSuffixGroup) ||
		strings.Contains(raw, jidSuffixBcast) ||
		strings.Contains(raw, jidSuffixNews)
}

// SanitizePhone strips formatting from a phone number and removes a leading
// country code when the remainder is a plausible local number.
func SanitizePhone(raw, countryCode string) string {
	digits := DigitsOnly(raw)
	if countryCode != "" && strings.HasPrefix(digits, countryCode) &&
		len(digits) == len(countryCode)+10 {
		return digits[len(countryCode):]
	}
	return digits
}

// NormalizeE164 converts a phone number to +<countrycode><subscriber> form.
func NormalizeE164(raw, countryCode string) string {
	digits := DigitsOnly(raw)
	switch {
	case digits == "":
		return ""
	case len(digits) == 10:
		return "+" + countryCode + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return "+" + countryCode + digits[1:]
	case strings.HasPrefix(digits, countryCode):
		return "+" + digits
	default:
		return "+" + digits
	}
}

// LastNDigits returns the trailing n digits of a phone number, or the whole
// digit string when shorter than n.
func LastNDigits(raw string, n int) string {
	digits := DigitsOnly(raw)
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}

// IsValidPhoneDigits reports whether the digit count is within E.164 bounds.
func IsValidPhoneDigits(raw string) bool {
	n := len(DigitsOnly(raw))
	return n >= MinPhoneDigits && n <= MaxPhoneDigits
}

// IsValidLocalMobile reports whether digits form a ten-digit mobile number in
// the default dialing region (leading digit 6 through 9).
func IsValidLocalMobile(digits string) bool {
	if len(digits) != 10 {
		return false
	}
	return digits[0] >= '6' && digits[0] <= '9'
}
