package app

import (
	"regexp"
	"strconv"
	"strings"

	"codium-engine/internal/domain"
)

// Validate scores a submission against a question. It is pure: lives, score
// and sequence-pointer mutation are the caller's job. nextRequiredIndex is
// only consulted in sequence mode and names the position the submission must
// match.
func Validate(q domain.Question, sub domain.Submission, nextRequiredIndex int) domain.Verdict {
	if len(sub.Values) == 0 {
		return reject(domain.ReasonInvalidToken)
	}

	switch q.Mode {
	case domain.ModeEvaluate:
		return validateEvaluate(q, sub)
	case domain.ModeSequence:
		return validateSequence(q, sub.Values[0], nextRequiredIndex)
	case domain.ModeFreeText:
		return validateFreeText(q, sub.Values[0])
	default:
		return validateExactKind(q, sub.Values[0])
	}
}

func validateExactKind(q domain.Question, raw string) domain.Verdict {
	token := ParseToken(raw)
	if token.Kind == domain.KindInvalid {
		return reject(domain.ReasonInvalidToken)
	}
	if q.CorrectAnswer == "" && len(q.AcceptedValues) == 0 {
		return reject(domain.ReasonUnanswerable)
	}
	if token.Kind != q.ExpectedKind {
		return reject(domain.ReasonKindMismatch)
	}

	if q.ExpectedKind == domain.KindStringLiteral {
		// Quoting presence must match the expected answer even when the
		// inner text does: `"5"` never satisfies `5`.
		return validateStringLiteral(q, token)
	}

	// Numbers and identifiers compare as raw text, ordinally. "007" != "7".
	candidate := strings.TrimSpace(token.Raw)
	for _, accepted := range acceptedSet(q) {
		if candidate == accepted {
			return accept()
		}
	}
	return reject(domain.ReasonValueMismatch)
}

func validateStringLiteral(q domain.Question, token domain.AnswerToken) domain.Verdict {
	submittedQuoted := isQuoted(strings.TrimSpace(token.Raw))
	for _, accepted := range acceptedSet(q) {
		acceptedQuoted := isQuoted(accepted)
		if submittedQuoted != acceptedQuoted {
			continue
		}
		if token.Value == stripOuterQuotes(accepted) {
			return accept()
		}
	}
	// Distinguish a quoting slip from a plain wrong value so hints can say
	// "mind the quotes".
	for _, accepted := range acceptedSet(q) {
		if token.Value == stripOuterQuotes(accepted) {
			return reject(domain.ReasonQuotingMismatch)
		}
	}
	return reject(domain.ReasonValueMismatch)
}

func acceptedSet(q domain.Question) []string {
	if len(q.AcceptedValues) > 0 {
		return q.AcceptedValues
	}
	if q.CorrectAnswer != "" {
		return []string{q.CorrectAnswer}
	}
	return nil
}

// validateEvaluate expects number tokens in every slot and checks
// a + b*c against the target. Any non-number slot rejects immediately.
func validateEvaluate(q domain.Question, sub domain.Submission) domain.Verdict {
	if len(sub.Values) < 3 {
		return reject(domain.ReasonInvalidToken)
	}
	nums := make([]int, 3)
	for i := 0; i < 3; i++ {
		token := ParseToken(sub.Values[i])
		if token.Kind != domain.KindNumber {
			return reject(domain.ReasonKindMismatch)
		}
		n, err := strconv.Atoi(token.Value)
		if err != nil {
			return reject(domain.ReasonInvalidToken)
		}
		nums[i] = n
	}
	if nums[0]+nums[1]*nums[2] != q.TargetValue {
		return reject(domain.ReasonWrongResult)
	}
	return accept()
}

func validateSequence(q domain.Question, raw string, nextRequiredIndex int) domain.Verdict {
	ordered := nonEmpty(q.CorrectOrder)
	if len(ordered) == 0 {
		// Empty sequences are a content error, not an auto-complete.
		return reject(domain.ReasonUnanswerable)
	}
	if nextRequiredIndex < 0 || nextRequiredIndex >= len(ordered) {
		return reject(domain.ReasonNotNextInOrder)
	}

	submitted := normalizeLine(raw, q.IgnoreCase)
	if submitted == "" {
		return reject(domain.ReasonInvalidToken)
	}
	if submitted != normalizeLine(ordered[nextRequiredIndex], q.IgnoreCase) {
		// A correct item out of order fails exactly like a wrong item.
		return reject(domain.ReasonNotNextInOrder)
	}
	return domain.Verdict{
		Accepted:         true,
		SequenceAdvanced: true,
		SequenceComplete: nextRequiredIndex == len(ordered)-1,
	}
}

func validateFreeText(q domain.Question, raw string) domain.Verdict {
	p := strings.TrimSpace(raw)
	if len(q.AcceptedAnswers) == 0 && len(q.AcceptedRegex) == 0 {
		return reject(domain.ReasonUnanswerable)
	}
	for _, a := range q.AcceptedAnswers {
		if strings.EqualFold(strings.TrimSpace(a), p) {
			return accept()
		}
	}
	for _, pattern := range q.AcceptedRegex {
		if pattern == "" {
			continue
		}
		rx, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue
		}
		if rx.MatchString(p) {
			return accept()
		}
	}
	return reject(domain.ReasonValueMismatch)
}

// normalizeLine trims, folds case when asked, and collapses CRLF line endings
// so content authored on different platforms compares equal.
func normalizeLine(s string, ignoreCase bool) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	if ignoreCase {
		s = strings.ToLower(s)
	}
	return s
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func accept() domain.Verdict {
	return domain.Verdict{Accepted: true}
}

func reject(reason domain.FailureReason) domain.Verdict {
	return domain.Verdict{Accepted: false, Reason: reason}
}
