package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of a domain error.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindOutOfStock          Kind = "out_of_stock"
	KindEmptyCart           Kind = "empty_cart"
	KindDuplicateTicket     Kind = "duplicate_ticket"
	KindInvalidInput        Kind = "invalid_input"
	KindConcurrencyConflict Kind = "concurrency_conflict"
)

// Error carries a Kind, a message safe to show to callers and an optional
// underlying cause that is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrOutOfStock          = &Error{Kind: KindOutOfStock}
	ErrEmptyCart           = &Error{Kind: KindEmptyCart}
	ErrDuplicateTicket     = &Error{Kind: KindDuplicateTicket}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new Error of the given kind.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf reports the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the whole operation may be retried by the caller.
func Retryable(err error) bool {
	return KindOf(err) == KindConcurrencyConflict
}
