package sms

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Canonical form is <country-code><subscriber>: "7" followed by nine digits.
const (
	CountryCode      = "7"
	subscriberDigits = 9
)

var canonicalPattern = regexp.MustCompile(`^7\d{9}$`)

var punctReplacer = strings.NewReplacer(
	" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "",
)

// InvalidPhonesError carries every offending input so callers can reject the
// whole submission with a complete list, not just the first bad number.
type InvalidPhonesError struct {
	Invalid []string
}

func (e *InvalidPhonesError) Error() string {
	return fmt.Sprintf("invalid phone numbers: %s", strings.Join(e.Invalid, ", "))
}

type PhoneNormalizer struct {
	logger *zap.Logger
	debug  bool
}

func NewPhoneNormalizer(logger *zap.Logger, debug bool) *PhoneNormalizer {
	return &PhoneNormalizer{logger: logger, debug: debug}
}

// Normalize canonicalizes one raw number. Accepted prefixes after stripping
// punctuation: "+7", "7", "0"; the remainder must be nine digits.
func (p *PhoneNormalizer) Normalize(raw string) (string, bool) {
	cleaned := punctReplacer.Replace(strings.TrimSpace(raw))

	var candidate string
	switch {
	case strings.HasPrefix(cleaned, "+"+CountryCode):
		candidate = cleaned[1:]
	case strings.HasPrefix(cleaned, "0"):
		candidate = CountryCode + cleaned[1:]
	case strings.HasPrefix(cleaned, CountryCode):
		candidate = cleaned
	default:
		p.logDecision(raw, "", false)
		return "", false
	}

	if !canonicalPattern.MatchString(candidate) {
		p.logDecision(raw, candidate, false)
		return "", false
	}

	p.logDecision(raw, candidate, true)
	return candidate, true
}

// NormalizeAll is fail-fast: if any input cannot be canonicalized the whole
// batch is rejected with the list of offending values.
func (p *PhoneNormalizer) NormalizeAll(raws []string) ([]string, error) {
	normalized := make([]string, 0, len(raws))
	var invalid []string

	for _, raw := range raws {
		phone, ok := p.Normalize(raw)
		if !ok {
			invalid = append(invalid, raw)
			continue
		}
		normalized = append(normalized, phone)
	}

	if len(invalid) > 0 {
		return nil, &InvalidPhonesError{Invalid: invalid}
	}

	return normalized, nil
}

// IsCanonical reports whether a phone is already in canonical form. Used to
// filter pre-resolved group contacts without re-normalizing them.
func IsCanonical(phone string) bool {
	return canonicalPattern.MatchString(phone)
}

func (p *PhoneNormalizer) logDecision(raw, candidate string, accepted bool) {
	if !p.debug {
		return
	}

	p.logger.Debug("Phone normalization decision",
		zap.String("raw", raw),
		zap.String("candidate", candidate),
		zap.Bool("accepted", accepted))
}
