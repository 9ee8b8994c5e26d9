package tangerr

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds defined in the engine's error handling
// design. Kinds are stable strings so they serialize unchanged to callers.
type Kind string

const (
	NotFound          Kind = "NotFound"
	Ambiguous         Kind = "Ambiguous"
	DanglingEndpoint  Kind = "DanglingEndpoint"
	Softlock          Kind = "Softlock"
	VersionConflict   Kind = "VersionConflict"
	UnresolvableHard  Kind = "UnresolvableHard"
	UnsafeExpression  Kind = "UnsafeExpression"
	NoTemplateInScope Kind = "NoTemplateInScope"
	CallDepthExceeded Kind = "CallDepthExceeded"
	CacheMiss         Kind = "CacheMiss"
	UnknownOperation  Kind = "UnknownOperation"
)

// Error is the concrete error type carrying a Kind plus context fields.
// It implements error and supports errors.Is/errors.As via Kind equality.
type Error struct {
	Kind    Kind
	What    string // the uid/label/path/operation this error concerns
	Wrapped error
}

func (e *Error) Error() string {
	if e.What == "" {
		return string(e.Kind)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.What, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.What)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, tangerr.New(tangerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs an Error of the given kind with a "what" description.
func New(kind Kind, what string) *Error {
	return &Error{Kind: kind, What: what}
}

// Wrap constructs an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, what string, cause error) *Error {
	return &Error{Kind: kind, What: what, Wrapped: cause}
}

// Envelope is the structured error shape returned at the execution API
// boundary (§7 "user-visible failure"). It never carries a stack trace.
type Envelope struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ToEnvelope converts any error into an Envelope, defaulting to an internal
// kind when the error does not carry one of the closed set of Kinds.
func ToEnvelope(err error) Envelope {
	var e *Error
	if errors.As(err, &e) {
		ctx := map[string]any{}
		if e.What != "" {
			ctx["what"] = e.What
		}
		return Envelope{Kind: e.Kind, Message: e.Error(), Context: ctx}
	}
	return Envelope{Kind: "Internal", Message: err.Error()}
}
