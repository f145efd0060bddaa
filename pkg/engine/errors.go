package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkoosis/tabfy/pkg/command"
	"github.com/dkoosis/tabfy/pkg/recipe"
	"github.com/dkoosis/tabfy/pkg/table"
)

// Kind classifies a request failure.
type Kind int

const (
	TypeMismatch     Kind = iota + 1 // input value was not text
	InvalidSource                    // host returned unreadable source text
	MissingDelimiter                 // no command boundary in the pipeline
	NoSchema                         // fragment matched no catalog entry
	ExecutionFailed                  // a child process failed
	MalformedOutput                  // interpreter output was not JSON
	UnexpectedShape                  // JSON was not an array of objects
)

var kindNames = map[Kind]string{
	TypeMismatch:     "type mismatch",
	InvalidSource:    "invalid source",
	MissingDelimiter: "missing delimiter",
	NoSchema:         "no schema",
	ExecutionFailed:  "execution failed",
	MalformedOutput:  "malformed output",
	UnexpectedShape:  "unexpected shape",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Code returns a stable identifier such as NO_SCHEMA for scripts and agents.
func (k Kind) Code() string {
	return strings.ToUpper(strings.ReplaceAll(k.String(), " ", "_"))
}

// sentinel maps kinds to the lower-level errors they stand for, so callers can
// match either.
var sentinel = map[Kind]error{
	MissingDelimiter: command.ErrMissingDelimiter,
	ExecutionFailed:  recipe.ErrExecutionFailed,
	MalformedOutput:  table.ErrMalformedOutput,
	UnexpectedShape:  table.ErrUnexpectedShape,
}

// Error is a labeled request failure. Span points into the original source
// text for diagnostics.
type Error struct {
	Kind  Kind
	Msg   string // headline
	Label string // short note attached to Span
	Span  Span
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, or the sentinel for this Kind, so
// errors.Is(err, &Error{Kind: NoSchema}) works.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if s, ok := sentinel[e.Kind]; ok {
		return target == s
	}
	return false
}

// KindOf reports the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
