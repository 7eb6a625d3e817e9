// Package backend holds the error taxonomy shared by every backend adapter.
//
// Adapters translate native SDK and HTTP failures into a *Error carrying one
// Kind. Nothing above the adapter boundary inspects SDK error types.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a backend failure
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindNotReady           Kind = "not_ready"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindTimeout            Kind = "timeout"
	KindUnknown            Kind = "unknown"
)

// Retryable reports whether a caller could reasonably try the same call again.
// Only malformed input is certain to fail the same way twice.
func (k Kind) Retryable() bool {
	return k != KindInvalidInput
}

// Error is a classified backend failure
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error for op
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted cause
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind of err. Context deadlines map to KindTimeout and
// anything unclassified is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// KindForStatus maps an HTTP status code onto a Kind
func KindForStatus(status int) Kind {
	switch {
	case status == 400 || status == 422:
		return KindInvalidInput
	case status == 401 || status == 403:
		return KindBackendUnavailable
	case status == 404 || status == 410:
		return KindNotFound
	case status == 408 || status == 504:
		return KindTimeout
	case status == 429 || status >= 500:
		return KindBackendUnavailable
	default:
		return KindUnknown
	}
}

// FromContext classifies a transport-level error, recognising deadlines and
// treating everything else as the backend being unreachable.
func FromContext(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return E(KindTimeout, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return E(KindUnknown, op, err)
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return E(KindBackendUnavailable, op, err)
}
