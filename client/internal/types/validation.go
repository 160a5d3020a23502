package types

import (
	"strings"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
)

// Rating bounds for reviews.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateIDPresent ensures that an ID field is non-empty.
func ValidateIDPresent(op, id, field string) error {
	if strings.TrimSpace(id) == "" {
		return sdkerrors.NewValidationError(op, field, field+" is required")
	}
	return nil
}

// ValidateRating ensures rating is within [MinRating, MaxRating].
func ValidateRating(op string, rating int) error {
	if rating < MinRating || rating > MaxRating {
		return sdkerrors.NewValidationError(op, "rating", "rating must be between 1 and 5")
	}
	return nil
}
