// Package booking holds the booking engine core: the typed error model,
// the ledger contracts, the slot conflict rule and the lifecycle state
// machine.  Nothing in this package talks to a store directly; the
// repository package supplies Ledger implementations and the service
// package coordinates them.
package booking

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindTransient         Kind = "transient"
	KindValidation        Kind = "validation"
	KindUnauthenticated   Kind = "unauthenticated"
	KindInternal          Kind = "internal"
)

// Error is the typed error returned across the engine.  Op names the
// operation that failed, Detail is safe to show to a caller and Err is
// the optional underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind with no detail, so that
// errors.Is(err, &Error{Kind: KindConflict}) works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Detail == "" && t.Err == nil
}

// E builds a new typed error.
func E(kind Kind, op, detail string) error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Ef builds a new typed error with a formatted detail.
func Ef(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, op string, err error, detail string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// WithOp adds operation context to err without changing its kind.  Errors
// that are not *Error are classified as internal.
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		if be.Op == "" {
			cp := *be
			cp.Op = op
			return &cp
		}
		return &Error{Kind: be.Kind, Op: op, Err: err}
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry err unchanged.  Only
// transient store failures qualify.
func Retryable(err error) bool { return IsKind(err, KindTransient) }

// DetailOf returns the innermost non-empty caller-facing detail in err.
func DetailOf(err error) string {
	detail := ""
	for err != nil {
		var be *Error
		if !errors.As(err, &be) {
			break
		}
		if be.Detail != "" {
			detail = be.Detail
		}
		err = be.Err
	}
	return detail
}
