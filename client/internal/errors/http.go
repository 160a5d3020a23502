package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// backendMessage is the error body shape the backend uses. Either field may
// carry the text; message wins.
type backendMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewHTTPError builds the error for a non-2xx response. A body with a
// message or error string yields BackendRejection; anything else is a
// NetworkFailure carrying only the status.
func NewHTTPError(op string, statusCode int, body []byte) *Error {
	var bm backendMessage
	if err := json.Unmarshal(body, &bm); err == nil {
		msg := strings.TrimSpace(bm.Message)
		if msg == "" {
			msg = strings.TrimSpace(bm.Error)
		}
		if msg != "" {
			return &Error{
				Kind:       BackendRejection,
				Op:         op,
				StatusCode: statusCode,
				Message:    msg,
				Underlying: fmt.Errorf("%s failed: HTTP %d", op, statusCode),
			}
		}
	}
	return &Error{
		Kind:       NetworkFailure,
		Op:         op,
		StatusCode: statusCode,
		Underlying: fmt.Errorf("%s failed: HTTP %d", op, statusCode),
	}
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(op string, err error) *Error {
	return &Error{
		Kind:       NetworkFailure,
		Op:         op,
		Underlying: fmt.Errorf("%s network error: %w", op, err),
	}
}

// NewDecodeError wraps a 2xx response whose body could not be parsed.
func NewDecodeError(op string, err error) *Error {
	return &Error{
		Kind:       NetworkFailure,
		Op:         op,
		Underlying: fmt.Errorf("%s: decode response: %w", op, err),
	}
}

// NewValidationError reports a client-side rejection of field.
func NewValidationError(op, field, message string) *Error {
	return &Error{
		Kind:    ValidationFailure,
		Op:      op,
		Field:   field,
		Message: message,
	}
}

// NewUnauthenticated reports that op needs a session token.
func NewUnauthenticated(op string) *Error {
	return &Error{
		Kind:    Unauthenticated,
		Op:      op,
		Message: "you must be logged in to " + op,
	}
}
