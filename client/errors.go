package client

import (
	"errors"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
)

// Error is the single error type returned by the SDK.
type Error = sdkerrors.Error

// Kind classifies an Error for presentation.
type Kind = sdkerrors.Kind

// Error kinds.
const (
	NetworkFailure    = sdkerrors.NetworkFailure
	BackendRejection  = sdkerrors.BackendRejection
	ValidationFailure = sdkerrors.ValidationFailure
	Unauthenticated   = sdkerrors.Unauthenticated
)

// Re-exported sentinels so callers compare against a single symbol.
var (
	ErrNetwork         = sdkerrors.ErrNetwork
	ErrRejected        = sdkerrors.ErrRejected
	ErrValidation      = sdkerrors.ErrValidation
	ErrUnauthenticated = sdkerrors.ErrUnauthenticated
	ErrNotFound        = sdkerrors.ErrNotFound
)

// ErrFetchFailed marks a directory load that failed; the previous
// collection is kept.
var ErrFetchFailed = errors.New("fetch failed")

// KindOf returns the kind of err and whether err is an SDK error.
func KindOf(err error) (Kind, bool) { return sdkerrors.KindOf(err) }

// UserMessage returns the text to show a user for err.
func UserMessage(err error) string { return sdkerrors.UserMessage(err) }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthenticated reports whether err was caused by a missing session.
func IsUnauthenticated(err error) bool { return errors.Is(err, ErrUnauthenticated) }
