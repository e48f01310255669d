package feeds

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
)

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func TestVerify_Baseline(t *testing.T) {
	v := Baseline()

	if err := v.Verify(lines("; comment\n10.0.0.0/8 ; SBL1\n"), 1, ';'); err != nil {
		t.Errorf("Expected success, got %v", err)
	}

	for _, raw := range [][]string{nil, {""}, {"", "   ", ""}} {
		err := v.Verify(raw, 0, ';')
		var ve *bferrors.VerificationError
		if !errors.As(err, &ve) {
			t.Errorf("Expected VerificationError for empty feed %q, got %v", raw, err)
		}
	}
}

func feodoFeed(n, trailer int) []string {
	var sb strings.Builder
	sb.WriteString("# Feodo Tracker Botnet C2 IP Blocklist\n#\n")
	for i := 0; i < n; i++ {
		sb.WriteString(fmt.Sprintf("192.0.2.%d\n", i+1))
	}
	sb.WriteString(fmt.Sprintf("#\n# END (%d entries)\n", trailer))
	return lines(sb.String())
}

func TestVerify_ParenthesizedCount(t *testing.T) {
	v := ParenthesizedCount("# END")

	if err := v.Verify(feodoFeed(5, 5), 5, '#'); err != nil {
		t.Errorf("Expected matching count to verify, got %v", err)
	}

	err := v.Verify(feodoFeed(5, 4), 5, '#')
	var ve *bferrors.VerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected VerificationError, got %v", err)
	}
	if !ve.HasCounts || ve.Expected != 4 || ve.Actual != 5 {
		t.Errorf("Unexpected counts: %+v", ve)
	}
}

func TestVerify_ParenthesizedCount_BadTrailer(t *testing.T) {
	v := ParenthesizedCount("# END")
	tests := []struct {
		name string
		raw  string
	}{
		{"no trailer", "192.0.2.1\n192.0.2.2\n"},
		{"no parenthesis", "192.0.2.1\n# END 1 entries\n"},
		{"not a number", "192.0.2.1\n# END (one entries)\n"},
		{"empty parenthesis", "192.0.2.1\n# END ()\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(lines(tt.raw), 1, '#')
			var ve *bferrors.VerificationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected VerificationError, got %v", err)
			}
			if ve.HasCounts {
				t.Errorf("Expected trailer fault, got count mismatch %+v", ve)
			}
		})
	}
}

func TestVerify_InlineCount(t *testing.T) {
	v := InlineCount()
	raw := lines("# RW_DOMBL\n#\nbad.example\nworse.example\n# 2 entries\n")

	if err := v.Verify(raw, 2, '#'); err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if err := v.Verify(raw, 3, '#'); err == nil {
		t.Error("Expected mismatch error")
	}
	if err := v.Verify(lines("bad.example\n# done\n"), 1, '#'); err == nil {
		t.Error("Expected missing summary error")
	}
	if err := v.Verify(lines("bad.example\n# many entries\n"), 1, '#'); err == nil {
		t.Error("Expected unparsable summary error")
	}
}

// rwFeed builds a feed in the RW_IPBL block layout.
func rwFeed(data []string, trailer int) []string {
	rule := strings.Repeat("#", 60)
	raw := []string{
		rule,
		"# Ransomware Tracker: IP Blocklist",
		"# Generated on 2016-10-18",
		rule,
	}
	raw = append(raw, data...)
	raw = append(raw, fmt.Sprintf("# %d entries", trailer), "")
	return raw
}

func TestVerify_InlineCountCorrected(t *testing.T) {
	v := InlineCountCorrected()

	withBlank := rwFeed([]string{"192.0.2.1", "", "192.0.2.2", "192.0.2.3"}, 4)
	if err := v.Verify(withBlank, 3, '#'); err != nil {
		t.Errorf("Expected blank data line to be corrected, got %v", err)
	}

	withoutBlank := rwFeed([]string{"192.0.2.1", "192.0.2.2", "192.0.2.3"}, 4)
	err := v.Verify(withoutBlank, 3, '#')
	var ve *bferrors.VerificationError
	if !errors.As(err, &ve) || !ve.HasCounts {
		t.Fatalf("Expected count mismatch without blank line, got %v", err)
	}
	if ve.Expected != 4 || ve.Actual != 3 {
		t.Errorf("Unexpected counts %+v", ve)
	}

	exact := rwFeed([]string{"192.0.2.1", "192.0.2.2", "192.0.2.3"}, 3)
	if err := v.Verify(exact, 3, '#'); err != nil {
		t.Errorf("Expected exact trailer to verify, got %v", err)
	}
}

func TestVerify_InlineCountUncorrectedIgnoresBlank(t *testing.T) {
	withBlank := rwFeed([]string{"192.0.2.1", "", "192.0.2.2"}, 3)
	if err := InlineCount().Verify(withBlank, 2, '#'); err == nil {
		t.Error("Expected plain inline-count verifier not to apply the correction")
	}
}
