package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      &Error{Code: ErrCodeConfig, Message: "invalid configuration"},
			expected: "[CONFIG_ERROR] invalid configuration",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeSnapshot, "failed to write snapshot", stderrors.New("permission denied")),
			expected: "[SNAPSHOT_ERROR] failed to write snapshot: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := &Error{Code: ErrCodeConfig, Message: "test error"}
	err2 := &Error{Code: ErrCodeConfig, Message: "another error"}
	err3 := &Error{Code: ErrCodeResolve, Message: "resolve error"}

	if !err1.Is(err2) {
		t.Errorf("Expected errors with same code to match")
	}
	if err1.Is(err3) {
		t.Errorf("Expected errors with different codes to not match")
	}
}

func TestFeedError_StageMatching(t *testing.T) {
	tests := []struct {
		stage    Stage
		sentinel error
		others   []error
	}{
		{StageFetch, ErrFetch, []error{ErrParse, ErrVerify}},
		{StageParse, ErrParse, []error{ErrFetch, ErrVerify}},
		{StageVerify, ErrVerify, []error{ErrFetch, ErrParse}},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewFeedError(tt.stage, "drop", stderrors.New("boom")))
			if !Is(err, tt.sentinel) {
				t.Errorf("Expected %v to match %v", err, tt.sentinel)
			}
			for _, other := range tt.others {
				if Is(err, other) {
					t.Errorf("Expected %v not to match %v", err, other)
				}
			}

			var fe *FeedError
			if !As(err, &fe) {
				t.Fatal("Expected errors.As to find *FeedError")
			}
			if fe.SourceID != "drop" {
				t.Errorf("Expected source id drop, got %s", fe.SourceID)
			}
		})
	}
}

func TestFeedError_CarriesMalformedEntry(t *testing.T) {
	cause := NewMalformedEntry("not-an-ip", stderrors.New("bad address"))
	err := NewFeedError(StageParse, "zeus", cause)

	var me *MalformedEntryError
	if !As(err, &me) {
		t.Fatal("Expected MalformedEntryError in chain")
	}
	if me.Line != "not-an-ip" {
		t.Errorf("Expected offending line to be preserved, got %q", me.Line)
	}
	if !strings.Contains(err.Error(), "error while processing") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestVerificationError(t *testing.T) {
	mismatch := NewCountMismatch(10, 9)
	if !strings.Contains(mismatch.Error(), "(9)") || !strings.Contains(mismatch.Error(), "(10)") {
		t.Errorf("Expected both counts in message, got %s", mismatch.Error())
	}

	cause := stderrors.New("Can't find entries summary")
	wrapped := NewVerificationError(cause)
	if wrapped.HasCounts {
		t.Error("Expected HasCounts=false for trailer fault")
	}
	if !Is(wrapped, cause) {
		t.Error("Expected original cause to be reachable")
	}
}

func TestConsistencyError_Is(t *testing.T) {
	err := &ConsistencyError{Key: "10.0.0.0/8", FirstVersion: 4, SecondVersion: 6}
	if !Is(err, New(ErrCodeConsistency, "")) {
		t.Error("Expected ConsistencyError to match its code")
	}
}

func TestFeedErrors(t *testing.T) {
	fe := FeedErrors{
		NewFeedError(StageFetch, "a", stderrors.New("timeout")),
		NewFeedError(StageVerify, "b", NewCountMismatch(2, 1)),
	}

	ids := fe.SourceIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("Unexpected ids: %v", ids)
	}
	if !strings.Contains(fe.Error(), "2 feed(s) failed") {
		t.Errorf("Unexpected message: %s", fe.Error())
	}
}
