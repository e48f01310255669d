// Package errors provides domain-specific error types for blocklists-aggregator.
//
// Every failure of a single feed load is a *FeedError tagged with the stage
// that failed (fetch, parse or verify) and the feed id. Parser and verifier
// faults travel inside it as *MalformedEntryError and *VerificationError.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error that can occur in the application.
type ErrorCode string

const (
	// ErrCodeConfig indicates a configuration-related error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeFetch indicates the feed body could not be retrieved or decoded.
	ErrCodeFetch ErrorCode = "FETCH_ERROR"

	// ErrCodeParse indicates a feed line could not be turned into entries.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeVerify indicates the parsed feed does not match its own trailer.
	ErrCodeVerify ErrorCode = "VERIFY_ERROR"

	// ErrCodeResolve indicates a DNS resolution fault other than "not found".
	ErrCodeResolve ErrorCode = "RESOLVE_ERROR"

	// ErrCodeConsistency indicates an aggregated dataset invariant was violated.
	ErrCodeConsistency ErrorCode = "CONSISTENCY_ERROR"

	// ErrCodeSnapshot indicates a snapshot file could not be read or written.
	ErrCodeSnapshot ErrorCode = "SNAPSHOT_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewResolveError creates a new resolution fault.
func NewResolveError(message string, cause error) *Error {
	return Wrap(ErrCodeResolve, message, cause)
}

// NewSnapshotError creates a new snapshot error.
func NewSnapshotError(message string, cause error) *Error {
	return Wrap(ErrCodeSnapshot, message, cause)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCodeInternal, message, cause)
}

// Stage is the step of a feed load that failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageParse  Stage = "parse"
	StageVerify Stage = "verify"
)

func (s Stage) code() ErrorCode {
	switch s {
	case StageFetch:
		return ErrCodeFetch
	case StageParse:
		return ErrCodeParse
	case StageVerify:
		return ErrCodeVerify
	default:
		return ErrCodeInternal
	}
}

// Sentinels matched by errors.Is against any *FeedError of the same stage.
var (
	ErrFetch  = New(ErrCodeFetch, "fetch failed")
	ErrParse  = New(ErrCodeParse, "parse failed")
	ErrVerify = New(ErrCodeVerify, "verify failed")
)

// FeedError aborts the load of one feed. Other feeds are unaffected.
type FeedError struct {
	Stage    Stage
	SourceID string
	Cause    error
}

// NewFeedError tags cause with the stage and feed it belongs to.
func NewFeedError(stage Stage, sourceID string, cause error) *FeedError {
	return &FeedError{Stage: stage, SourceID: sourceID, Cause: cause}
}

func (e *FeedError) Error() string {
	var action string
	switch e.Stage {
	case StageFetch:
		action = "fetching"
	case StageParse:
		action = "processing"
	case StageVerify:
		action = "verifying"
	default:
		action = string(e.Stage)
	}
	return fmt.Sprintf("[%s] %s: error while %s the feed data: %v", e.Stage.code(), e.SourceID, action, e.Cause)
}

func (e *FeedError) Unwrap() error {
	return e.Cause
}

// Is matches the stage sentinels (ErrFetch, ErrParse, ErrVerify) and other
// FeedErrors of the same stage.
func (e *FeedError) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Stage.code() == t.Code
	case *FeedError:
		return e.Stage == t.Stage
	}
	return false
}

// MalformedEntryError is returned by an entry parser for a line it cannot handle.
type MalformedEntryError struct {
	Line  string
	Cause error
}

// NewMalformedEntry creates a parser fault for line.
func NewMalformedEntry(line string, cause error) *MalformedEntryError {
	return &MalformedEntryError{Line: line, Cause: cause}
}

func (e *MalformedEntryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("incorrect entry %q: %v", e.Line, e.Cause)
	}
	return fmt.Sprintf("incorrect entry %q", e.Line)
}

func (e *MalformedEntryError) Unwrap() error {
	return e.Cause
}

// VerificationError is returned by an integrity verifier. When HasCounts is
// set the feed trailer was readable and Expected/Actual hold both counts.
type VerificationError struct {
	Expected  int
	Actual    int
	HasCounts bool
	Cause     error
}

// NewCountMismatch reports a trailer count that differs from the parsed count.
func NewCountMismatch(expected, actual int) *VerificationError {
	return &VerificationError{Expected: expected, Actual: actual, HasCounts: true}
}

// NewVerificationError wraps a trailer-format or empty-feed fault.
func NewVerificationError(cause error) *VerificationError {
	return &VerificationError{Cause: cause}
}

func (e *VerificationError) Error() string {
	if e.HasCounts {
		return fmt.Sprintf("the number of parsed entries (%d) does not match the expected one (%d)", e.Actual, e.Expected)
	}
	return fmt.Sprintf("can't determine the expected num. of entries - %v", e.Cause)
}

func (e *VerificationError) Unwrap() error {
	return e.Cause
}

// ConsistencyError means the same canonical entry string was seen with two IP versions.
type ConsistencyError struct {
	Key           string
	FirstVersion  int
	SecondVersion int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("[%s] entry %s seen as IPv%d and IPv%d", ErrCodeConsistency, e.Key, e.FirstVersion, e.SecondVersion)
}

func (e *ConsistencyError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == ErrCodeConsistency
}

// FeedErrors joins the failures of several feeds.
type FeedErrors []*FeedError

func (fe FeedErrors) Error() string {
	if len(fe) == 0 {
		return "no feed errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d feed(s) failed:\n", len(fe)))
	for i, err := range fe {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// SourceIDs returns the ids of the failed feeds in order.
func (fe FeedErrors) SourceIDs() []string {
	ids := make([]string, 0, len(fe))
	for _, err := range fe {
		ids = append(ids, err.SourceID)
	}
	return ids
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
