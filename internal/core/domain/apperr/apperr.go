package apperr

import (
	"errors"
	"time"
)

// Kind classifies a failure so callers can choose a transport status
// without string-matching messages.
type Kind string

const (
	// KindInvalidInput marks malformed coordinates or radii, rejected
	// before any store or upstream call.
	KindInvalidInput Kind = "invalid_input"
	// KindStoreUnavailable marks a failed store operation. Fatal to the
	// current request; never retried here.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindUpstreamFailure marks a non-success response or network error
	// from the places provider. Carries the upstream status when known.
	KindUpstreamFailure Kind = "upstream_failure"
	// KindRateLimited marks a limiter denial. Carries the window reset
	// time for client backoff; distinct from failures.
	KindRateLimited Kind = "rate_limited"
)

// Error is the structured failure surfaced to the transport layer.
type Error struct {
	Kind    Kind
	Message string
	// UpstreamStatus is the provider HTTP status for KindUpstreamFailure.
	UpstreamStatus int
	// ResetAt is the window reset time for KindRateLimited.
	ResetAt time.Time
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap annotates an underlying error with a kind and message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As extracts the *Error from err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
