package client

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/meetupz/meetupz/client/internal/bus"
	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
	"github.com/meetupz/meetupz/client/internal/identity"
)

// IsRegistered reports whether userKey is among m's participants. Both
// sides are compared in canonical form.
func IsRegistered(m Meetup, userKey string) bool {
	for _, p := range m.Participants {
		if identity.Same(p, userKey) {
			return true
		}
	}
	return false
}

// IsFull reports whether m has a capacity and has reached it. Over-full
// meetups are tolerated and reported full.
func IsFull(m Meetup) bool {
	return m.MaxParticipants > 0 && len(m.Participants) >= m.MaxParticipants
}

// Membership answers registration questions for the session user and runs
// join and leave against a directory.
type Membership struct {
	c   *Client
	dir *Directory
}

// NewMembership binds membership actions to dir, which receives the
// optimistic patches. dir may be nil.
func (c *Client) NewMembership(dir *Directory) *Membership {
	return &Membership{c: c, dir: dir}
}

// Registered reports whether the session user participates in m.
func (ms *Membership) Registered(m Meetup) bool {
	key := ms.c.session.Key()
	return key != "" && IsRegistered(m, key)
}

// CanRegister reports whether the register action is available for m:
// a session exists, the user is not yet registered and m is not full.
func (ms *Membership) CanRegister(m Meetup) bool {
	return ms.c.session.Authenticated() && !ms.Registered(m) && !IsFull(m)
}

// Register joins the meetup. A meetup known to be full is rejected before
// any network call. On success the directory is patched and meetup-updated
// is published; on failure nothing changes.
func (ms *Membership) Register(ctx context.Context, meetupID string) error {
	const op = "join meetup"
	if err := ms.c.session.RequireToken(op); err != nil {
		return err
	}
	if ms.dir != nil {
		if m, ok := ms.dir.Get(meetupID); ok && IsFull(m) && !ms.Registered(m) {
			return sdkerrors.NewValidationError(op, "meetupId", "meetup is full")
		}
	}
	if err := ms.c.JoinMeetup(ctx, meetupID); err != nil {
		return err
	}
	ms.patch(meetupID, AddParticipant)
	ms.c.publish(bus.MeetupUpdated, meetupID)
	return nil
}

// Unregister leaves the meetup. It is allowed on full meetups.
func (ms *Membership) Unregister(ctx context.Context, meetupID string) error {
	if err := ms.c.LeaveMeetup(ctx, meetupID); err != nil {
		return err
	}
	ms.patch(meetupID, RemoveParticipant)
	ms.c.publish(bus.MeetupUpdated, meetupID)
	return nil
}

func (ms *Membership) patch(meetupID string, op ParticipantOp) {
	if ms.dir == nil {
		return
	}
	key := ms.c.session.Key()
	if key == "" {
		return
	}
	if !ms.dir.ApplyOptimisticParticipant(meetupID, key, op) {
		log.Debug().Str("meetup_id", meetupID).Msg("membership: meetup not in directory, skipping patch")
	}
}
