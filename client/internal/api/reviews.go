package api

import (
	"context"
	"net/http"

	"github.com/meetupz/meetupz/client/internal/types"
)

// ListReviews fetches the reviews of one meetup, normalized to a slice.
func ListReviews(ctx context.Context, hc HTTPClient, baseURL, meetupID string) ([]types.Review, error) {
	const op = "list reviews"
	if err := types.ValidateIDPresent(op, meetupID, "meetupId"); err != nil {
		return nil, err
	}
	var out types.ReviewList
	if err := do(ctx, hc, op, http.MethodGet, join(baseURL, "meetups", meetupID, "reviews"), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = types.ReviewList{}
	}
	for i := range out {
		if out[i].MeetupID == "" {
			out[i].MeetupID = meetupID
		}
	}
	return out, nil
}

// CreateReview posts a review. Requires a session. The returned review has
// its MeetupID filled in even when the backend omits it.
func CreateReview(ctx context.Context, hc HTTPClient, baseURL, meetupID string, req types.CreateReviewRequest) (*types.Review, error) {
	const op = "submit review"
	if err := types.ValidateIDPresent(op, meetupID, "meetupId"); err != nil {
		return nil, err
	}
	if err := types.ValidateRating(op, req.Rating); err != nil {
		return nil, err
	}
	var out types.CreatedReview
	if err := do(ctx, hc, op, http.MethodPost, join(baseURL, "meetups", meetupID, "reviews"), req, &out); err != nil {
		return nil, err
	}
	r := out.Review
	if r.MeetupID == "" {
		r.MeetupID = meetupID
	}
	if r.Rating == 0 {
		r.Rating = req.Rating
		r.Comment = req.Comment
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = req.CreatedAt
	}
	return &r, nil
}
