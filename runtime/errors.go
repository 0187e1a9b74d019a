package runtime

import (
	"errors"
	"fmt"
)

// Kind tags a render-time error the way the original implementation's
// AttributeError/LookupError/TypeError/NameError distinguish failures that
// a pipe fallback or tal:on-error may legitimately catch. RuntimeError has
// no Kind constant: it is represented by Unrecoverable and is never caught
// by a pipe or wrapped by RenderError, per spec §4.D/§7.
type Kind int

const (
	// KindAttribute mirrors Python's AttributeError: attribute access
	// failed and the index-access fallback also failed.
	KindAttribute Kind = iota
	// KindLookup mirrors LookupError: a key or index was not found.
	KindLookup
	// KindType mirrors TypeError: an operation was applied to a value of
	// the wrong type.
	KindType
	// KindName mirrors NameError: an identifier did not resolve in scope.
	KindName
)

func (k Kind) String() string {
	switch k {
	case KindAttribute:
		return "AttributeError"
	case KindLookup:
		return "LookupError"
	case KindType:
		return "TypeError"
	case KindName:
		return "NameError"
	default:
		return "Error"
	}
}

// ExprError is a catchable expression-evaluation failure: the kind of error
// a pipe fallback tries the next candidate on, and that tal:on-error
// substitutes markup for.
type ExprError struct {
	Kind    Kind
	Message string
}

func (e *ExprError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// NewAttributeError, NewLookupError, NewTypeError and NewNameError build the
// four catchable error kinds the spec's pipe fallback and on-error handling
// distinguish by class.
func NewAttributeError(format string, args ...interface{}) *ExprError {
	return &ExprError{Kind: KindAttribute, Message: fmt.Sprintf(format, args...)}
}

func NewLookupError(format string, args ...interface{}) *ExprError {
	return &ExprError{Kind: KindLookup, Message: fmt.Sprintf(format, args...)}
}

func NewTypeError(format string, args ...interface{}) *ExprError {
	return &ExprError{Kind: KindType, Message: fmt.Sprintf(format, args...)}
}

func NewNameError(format string, args ...interface{}) *ExprError {
	return &ExprError{Kind: KindName, Message: fmt.Sprintf(format, args...)}
}

// Unrecoverable wraps an error that must never be caught by a pipe
// fallback, never substituted by tal:on-error and never wrapped by
// RenderError — the Go stand-in for the spec's "RuntimeError is never
// wrapped" rule. Panics recovered at the render boundary are reported this
// way.
type Unrecoverable struct {
	Err error
}

func (u *Unrecoverable) Error() string { return u.Err.Error() }
func (u *Unrecoverable) Unwrap() error { return u.Err }

// Catchable reports whether err is one the pipe-fallback / on-error
// machinery is allowed to intercept: an *ExprError, a *RenderError wrapping
// one, or any plain error that isn't explicitly marked Unrecoverable.
func Catchable(err error) bool {
	if err == nil {
		return false
	}
	var u *Unrecoverable
	return !errors.As(err, &u)
}

// Location pins a RenderError to the literal template text and position
// that raised it.
type Location struct {
	Filename string
	Line     int
	Column   int
	Source   string // the offending expression's literal source slice
}

// RenderError is raised when an expression fails at render time. Go has no
// multiple inheritance, so instead of the original implementation's trick
// of synthesising a subclass of the original exception's class, RenderError
// wraps the original error (Unwrap/errors.As/errors.Is recover its kind)
// and additionally exposes Original for callers that want the unwrapped
// value directly without walking the chain.
type RenderError struct {
	Loc       Location
	Err       error
	Variables map[string]string // bounded single-line preview per variable
}

func (e *RenderError) Error() string {
	if e.Loc.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s (%s)", e.Loc.Filename, e.Loc.Line, e.Loc.Column, e.Err, e.Loc.Source)
	}
	return fmt.Sprintf("%s (%s)", e.Err, e.Loc.Source)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Original returns the innermost non-RenderError cause.
func (e *RenderError) Original() error {
	err := e.Err
	for {
		var re *RenderError
		if !errors.As(err, &re) {
			return err
		}
		err = re.Err
	}
}

// Preview renders a bounded single-line string representation of v for a
// RenderError's variable snapshot: long or multi-line values are truncated.
func Preview(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	s = collapseWhitespace(s)
	const max = 120
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func collapseWhitespace(s string) string {
	out := make([]rune, 0, len(s))
	prevSpace := false
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		out = append(out, r)
	}
	return string(out)
}
