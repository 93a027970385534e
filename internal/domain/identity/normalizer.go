// Package identity canonicalizes phone and email strings into the comparison
// keys that drive lead deduplication and client matching.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizePhone strips every non-digit character. An 11-digit number with a
// leading 8 is rewritten to the equivalent 7-prefixed form so numbers captured
// as "8 (916) ..." and "+7 916 ..." compare equal.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '8' {
		digits = "7" + digits[1:]
	}
	return digits
}

// PhoneKey returns the last 10 digits of the normalized phone. Comparison on
// the suffix tolerates missing or varying country-code prefixes.
func PhoneKey(raw string) string {
	digits := NormalizePhone(raw)
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// NormalizeEmail lowercases and trims the address. Anything that does not look
// like a deliverable address yields "", never an error.
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailPattern.MatchString(email) {
		return ""
	}
	return email
}

// ClientKey derives the dedup key for a lead from its raw phone and email. The
// key is a pure function of (phone suffix, normalized email): two records with
// the same key always resolve to one canonical client. Returns "" when neither
// identity part survives normalization.
func ClientKey(rawPhone, rawEmail string) string {
	phoneKey := PhoneKey(rawPhone)
	email := NormalizeEmail(rawEmail)
	if phoneKey == "" && email == "" {
		return ""
	}
	sum := md5.Sum([]byte(phoneKey + "|" + email))
	return hex.EncodeToString(sum[:])
}
