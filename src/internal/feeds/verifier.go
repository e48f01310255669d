package feeds

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
)

// VerifierKind selects how a feed proves it was received completely.
type VerifierKind uint8

const (
	// VerifyBaseline only requires a non-empty body.
	VerifyBaseline VerifierKind = iota
	// VerifyParenthesizedCount reads "<marker> (N entries)" from the last line.
	VerifyParenthesizedCount
	// VerifyInlineCount reads "# N entries" from the last line.
	VerifyInlineCount
	// VerifyInlineCountCorrected is VerifyInlineCount with the RW_IPBL blank
	// line correction.
	VerifyInlineCountCorrected
)

func (k VerifierKind) String() string {
	switch k {
	case VerifyBaseline:
		return "baseline"
	case VerifyParenthesizedCount:
		return "parenthesized-count"
	case VerifyInlineCount:
		return "inline-count"
	case VerifyInlineCountCorrected:
		return "inline-count-corrected"
	default:
		return fmt.Sprintf("verifier(%d)", uint8(k))
	}
}

// Verifier is the per-source integrity check.
type Verifier struct {
	Kind VerifierKind
	// Marker prefixes the trailer line of VerifyParenthesizedCount feeds.
	Marker string
}

func Baseline() Verifier { return Verifier{Kind: VerifyBaseline} }

func ParenthesizedCount(marker string) Verifier {
	return Verifier{Kind: VerifyParenthesizedCount, Marker: marker}
}

func InlineCount() Verifier { return Verifier{Kind: VerifyInlineCount} }

func InlineCountCorrected() Verifier { return Verifier{Kind: VerifyInlineCountCorrected} }

var (
	errNoData     = errors.New("empty list of raw entries")
	errNoSummary  = errors.New("can't find entries summary")
	errBadSummary = errors.New("can't parse entries summary")
)

// Verify checks parsed (the number of lines the parser consumed) against
// what raw says about itself. Every failure is a *errors.VerificationError.
func (v Verifier) Verify(raw []string, parsed int, comment byte) error {
	last, ok := lastNonEmpty(raw)
	if !ok {
		return bferrors.NewVerificationError(errNoData)
	}

	var (
		expected int
		err      error
	)
	switch v.Kind {
	case VerifyBaseline:
		return nil
	case VerifyParenthesizedCount:
		expected, err = parenthesizedCount(last, v.Marker)
	case VerifyInlineCount:
		expected, err = inlineCount(last, comment)
	case VerifyInlineCountCorrected:
		expected, err = inlineCount(last, comment)
		if err == nil && HasMiscountedBlank(raw, comment) {
			expected--
		}
	default:
		err = fmt.Errorf("unknown verifier kind %s", v.Kind)
	}
	if err != nil {
		return bferrors.NewVerificationError(err)
	}

	if expected != parsed {
		return bferrors.NewCountMismatch(expected, parsed)
	}
	return nil
}

func lastNonEmpty(raw []string) (string, bool) {
	for i := len(raw) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(raw[i]); line != "" {
			return line, true
		}
	}
	return "", false
}

// parenthesizedCount parses "# END (123 entries)".
func parenthesizedCount(last, marker string) (int, error) {
	if !strings.HasPrefix(last, marker) {
		return 0, errNoSummary
	}

	_, inner, found := strings.Cut(last, "(")
	if !found {
		return 0, fmt.Errorf("%w: %s", errBadSummary, last)
	}
	token := strings.FieldsFunc(inner, func(r rune) bool { return r == ' ' || r == ')' })
	if len(token) == 0 {
		return 0, fmt.Errorf("%w: %s", errBadSummary, last)
	}
	return parseCount(token[0], last)
}

// inlineCount parses "# 123 entries".
func inlineCount(last string, comment byte) (int, error) {
	if last[0] != comment || !strings.Contains(last, "entries") {
		return 0, errNoSummary
	}

	fields := strings.Fields(last)
	if len(fields) < 2 {
		return 0, fmt.Errorf("%w: %s", errBadSummary, last)
	}
	return parseCount(fields[1], last)
}

func parseCount(token, line string) (int, error) {
	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %s", errBadSummary, line)
		}
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errBadSummary, line)
	}
	return n, nil
}
