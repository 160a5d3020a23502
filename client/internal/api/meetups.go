package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
	"github.com/meetupz/meetupz/client/internal/types"
)

// Meetup dates the backend sends without an offset are wall clock times in
// loc, the zone the user picked them in.

// ListMeetups fetches the full collection. A null body yields an empty list.
func ListMeetups(ctx context.Context, hc HTTPClient, baseURL string, loc *time.Location) ([]types.Meetup, error) {
	const op = "list meetups"
	var raw json.RawMessage
	if err := do(ctx, hc, op, http.MethodGet, join(baseURL, "meetups"), nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []types.Meetup{}, nil
	}
	out, err := types.DecodeMeetups(raw, loc)
	if err != nil {
		return nil, sdkerrors.NewDecodeError(op, err)
	}
	return out, nil
}

// GetMeetup fetches one meetup.
func GetMeetup(ctx context.Context, hc HTTPClient, baseURL, meetupID string, loc *time.Location) (*types.Meetup, error) {
	const op = "get meetup"
	if err := types.ValidateIDPresent(op, meetupID, "meetupId"); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := do(ctx, hc, op, http.MethodGet, join(baseURL, "meetups", meetupID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeMeetup(op, raw, loc)
}

// CreateMeetup posts a new meetup and returns it as stored by the backend.
func CreateMeetup(ctx context.Context, hc HTTPClient, baseURL string, req types.CreateMeetupRequest, loc *time.Location) (*types.Meetup, error) {
	const op = "create meetup"
	var raw json.RawMessage
	if err := do(ctx, hc, op, http.MethodPost, join(baseURL, "meetups"), req, &raw); err != nil {
		return nil, err
	}
	return decodeMeetup(op, raw, loc)
}

func decodeMeetup(op string, raw json.RawMessage, loc *time.Location) (*types.Meetup, error) {
	if len(raw) == 0 {
		return &types.Meetup{}, nil
	}
	m, err := types.DecodeMeetup(raw, loc)
	if err != nil {
		return nil, sdkerrors.NewDecodeError(op, err)
	}
	return &m, nil
}

// DeleteMeetup removes a meetup. Requires a session.
func DeleteMeetup(ctx context.Context, hc HTTPClient, baseURL, meetupID string) error {
	const op = "delete meetup"
	if err := types.ValidateIDPresent(op, meetupID, "meetupId"); err != nil {
		return err
	}
	return do(ctx, hc, op, http.MethodDelete, join(baseURL, "meetups", meetupID), nil, nil)
}

// JoinMeetup registers the session user. Requires a session.
func JoinMeetup(ctx context.Context, hc HTTPClient, baseURL, meetupID string) error {
	const op = "join meetup"
	if err := types.ValidateIDPresent(op, meetupID, "meetupId"); err != nil {
		return err
	}
	return do(ctx, hc, op, http.MethodPost, join(baseURL, "meetups", meetupID, "join"), nil, nil)
}

// LeaveMeetup unregisters the session user. Requires a session.
func LeaveMeetup(ctx context.Context, hc HTTPClient, baseURL, meetupID string) error {
	const op = "leave meetup"
	if err := types.ValidateIDPresent(op, meetupID, "meetupId"); err != nil {
		return err
	}
	return do(ctx, hc, op, http.MethodDelete, join(baseURL, "meetups", meetupID, "join"), nil, nil)
}
