package interview

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies orchestrator failures. The HTTP and MCP boundaries map
// kinds to status codes and messages; nothing below them does.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindLoad
	KindIndexBuild
	KindNotBuilt
	KindNoSourceSelected
	KindNoQuestionPending
	KindUpstreamUnavailable
	KindUpstreamMalformedOutput
	// KindUpstreamRejected is a backend refusing the request, usually a
	// configuration problem such as a bad API key or unknown model.
	KindUpstreamRejected
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindLoad:
		return "load"
	case KindIndexBuild:
		return "index_build"
	case KindNotBuilt:
		return "not_built"
	case KindNoSourceSelected:
		return "no_source_selected"
	case KindNoQuestionPending:
		return "no_question_pending"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamMalformedOutput:
		return "upstream_malformed_output"
	case KindUpstreamRejected:
		return "upstream_rejected"
	default:
		return "unknown"
	}
}

// Error is returned by every Service operation that fails.
type Error struct {
	Kind   Kind
	Op     string
	Source string
	Err    error
}

var (
	// ErrNoSourceSelected matches any error of KindNoSourceSelected via errors.Is.
	ErrNoSourceSelected = &Error{Kind: KindNoSourceSelected}
	// ErrNoQuestionPending matches any error of KindNoQuestionPending via errors.Is.
	ErrNoQuestionPending = &Error{Kind: KindNoQuestionPending}

	// ErrSessionClosed is wrapped when a session ends while a source is
	// being built for it.
	ErrSessionClosed = errors.New("session closed")
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindNoSourceSelected:
		return "No knowledge source selected. Please select a source first."
	case KindNoQuestionPending:
		return "No question available. Please generate a question first."
	case KindInvalidInput:
		if errors.Is(e.Err, ErrNotPDF) {
			return "Only PDF files are allowed"
		}
	case KindLoad:
		var pe *fs.PathError
		if errors.Is(e.Err, fs.ErrNotExist) && errors.As(e.Err, &pe) {
			return fmt.Sprintf("Data file %s not found.", pe.Path)
		}
	}
	msg := e.Op
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind with no cause,
// which lets the exported sentinels match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the same call may succeed if repeated later.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUpstreamUnavailable
}

func newError(kind Kind, op, source string, err error) *Error {
	return &Error{Kind: kind, Op: op, Source: source, Err: err}
}
