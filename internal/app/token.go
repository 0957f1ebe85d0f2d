package app

import (
	"regexp"
	"strings"

	"codium-engine/internal/domain"
)

var (
	intRx = regexp.MustCompile(`^-?\d+$`)
	idRx  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseToken classifies a raw player input. Quoted text becomes a string
// literal with the quotes stripped from Value; an integer pattern becomes a
// number; an identifier pattern becomes an identifier; anything else is
// invalid and will be rejected before question-specific rules run.
func ParseToken(raw string) domain.AnswerToken {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.AnswerToken{Kind: domain.KindInvalid, Value: s, Raw: raw}
	}
	if isQuoted(s) {
		return domain.AnswerToken{
			Kind:  domain.KindStringLiteral,
			Value: s[1 : len(s)-1],
			Raw:   raw,
		}
	}
	if intRx.MatchString(s) {
		return domain.AnswerToken{Kind: domain.KindNumber, Value: s, Raw: raw}
	}
	if idRx.MatchString(s) {
		return domain.AnswerToken{Kind: domain.KindIdentifier, Value: s, Raw: raw}
	}
	return domain.AnswerToken{Kind: domain.KindInvalid, Value: s, Raw: raw}
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func stripOuterQuotes(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
