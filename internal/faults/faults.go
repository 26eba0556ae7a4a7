// Package faults defines the error kinds the engine reports across its
// boundary. Services wrap causes with a kind; the HTTP layer maps kinds to
// status codes without inspecting messages.
package faults

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindInvalidTransition
	KindConflict
	KindAlreadyResolved
	KindUpstreamUnavailable
	KindUpstreamDegraded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindAlreadyResolved:
		return "already_resolved"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamDegraded:
		return "upstream_degraded"
	}
	return "unknown"
}

type Error struct {
	kind Kind
	msg  string
	err  error
}

func New(kind Kind, msg string) *Error { return &Error{kind: kind, msg: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// KindOf reports the kind carried by err, or KindUnknown when err does not
// originate here.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return KindUnknown
}

// Is lets callers match by kind: errors.Is(err, faults.New(faults.KindConflict, "")).
func (e *Error) Is(target error) bool {
	var fe *Error
	if errors.As(target, &fe) {
		return fe.kind == e.kind
	}
	return false
}

// Retryable reports whether the caller may retry the operation unchanged.
func Retryable(err error) bool {
	return KindOf(err) == KindUpstreamUnavailable
}
