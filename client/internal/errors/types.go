// Package errors provides the error taxonomy for the client SDK.
// Every failure surfaced by the SDK is an *Error carrying a Kind: what went
// wrong, from the user's point of view. Nothing in the SDK retries a failed
// request; the caller decides whether to try again.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for presentation.
type Kind int

const (
	// NetworkFailure: the request never produced a usable response (transport
	// error, non-2xx without a parseable message, undecodable body).
	NetworkFailure Kind = iota

	// BackendRejection: non-2xx with a structured message from the backend.
	BackendRejection

	// ValidationFailure: rejected client-side before any network call.
	ValidationFailure

	// Unauthenticated: the action needs a session token and none is present.
	Unauthenticated
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case NetworkFailure:
		return "NetworkFailure"
	case BackendRejection:
		return "BackendRejection"
	case ValidationFailure:
		return "ValidationFailure"
	case Unauthenticated:
		return "Unauthenticated"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Sentinels matched by errors.Is against an *Error of the corresponding kind.
var (
	ErrNetwork         = stderrors.New("network failure")
	ErrRejected        = stderrors.New("rejected by backend")
	ErrValidation      = stderrors.New("validation failed")
	ErrUnauthenticated = stderrors.New("not logged in")
	ErrNotFound        = stderrors.New("not found")
)

// Error is the single error type returned by the SDK.
type Error struct {
	Kind       Kind
	Op         string // operation, e.g. "join meetup"
	StatusCode int    // HTTP status code (0 for non-HTTP errors)
	Message    string // user-facing message (backend message or field problem)
	Field      string // offending field for ValidationFailure
	Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("%s: [%s] HTTP %d: %s", e.Op, e.Kind, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: [%s] HTTP %d", e.Op, e.Kind, e.StatusCode)
	case e.Field != "":
		return fmt.Sprintf("%s: [%s] %s: %s", e.Op, e.Kind, e.Field, e.Message)
	case e.Underlying != nil:
		return fmt.Sprintf("%s: [%s] %v", e.Op, e.Kind, e.Underlying)
	default:
		return fmt.Sprintf("%s: [%s] %s", e.Op, e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is lets callers compare against the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == NetworkFailure
	case ErrRejected:
		return e.Kind == BackendRejection
	case ErrValidation:
		return e.Kind == ValidationFailure
	case ErrUnauthenticated:
		return e.Kind == Unauthenticated
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// KindOf returns the kind of err and whether err is an SDK error at all.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// UserMessage returns the text to show a user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case Unauthenticated:
		return "you must be logged in"
	case NetworkFailure:
		if e.StatusCode > 0 {
			return fmt.Sprintf("%s failed (HTTP %d)", e.Op, e.StatusCode)
		}
		return fmt.Sprintf("network error during %s", e.Op)
	default:
		return fmt.Sprintf("%s failed", e.Op)
	}
}
