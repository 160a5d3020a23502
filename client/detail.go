package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetupz/meetupz/client/internal/bus"
)

// MeetupDetail is the view of a single meetup and its reviews. It refetches
// its reviews, debounced, on review-added for its own meetup and ignores the
// rest.
type MeetupDetail struct {
	c        *Client
	meetupID string

	mu      sync.RWMutex
	meetup  Meetup
	reviews []Review
	closed  bool

	sub       *bus.Subscription
	debounce  *bus.Debouncer
	closeOnce sync.Once
}

// OpenDetail fetches the meetup and its reviews and starts listening.
// A failed review fetch leaves the review list empty.
func (c *Client) OpenDetail(ctx context.Context, meetupID string) (*MeetupDetail, error) {
	m, err := c.GetMeetup(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	d := &MeetupDetail{c: c, meetupID: meetupID, meetup: *m, reviews: []Review{}}
	if rs, err := c.ListReviews(ctx, meetupID); err == nil {
		d.reviews = rs
	}
	d.debounce = bus.NewDebouncer(c.debounce, d.refresh)
	d.sub = c.bus.Subscribe("detail:"+meetupID, d.onReviewAdded, bus.ReviewAdded)
	return d, nil
}

func (d *MeetupDetail) onReviewAdded(_ context.Context, evt bus.Event) error {
	if evt.MeetupID == d.meetupID {
		d.debounce.Trigger()
	}
	return nil
}

func (d *MeetupDetail) refresh() {
	ctx, cancel := d.c.refetchContext()
	defer cancel()
	if err := d.RefreshReviews(ctx); err != nil {
		log.Warn().Err(err).Str("meetup_id", d.meetupID).Msg("detail: refetch failed, keeping reviews")
	}
}

// RefreshReviews refetches the reviews. On failure the old list is kept.
func (d *MeetupDetail) RefreshReviews(ctx context.Context) error {
	rs, err := d.c.ListReviews(ctx, d.meetupID)
	if err != nil {
		refetchFailuresTotal.WithLabelValues("detail").Inc()
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.reviews = rs
	}
	return nil
}

// Meetup returns the meetup as fetched.
func (d *MeetupDetail) Meetup() Meetup {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meetup.Clone()
}

// Reviews returns the current review list.
func (d *MeetupDetail) Reviews() []Review {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneReviews(d.reviews)
}

// ParticipantsText renders "N / max", with "?" for an unset capacity.
func (d *MeetupDetail) ParticipantsText() string {
	m := d.Meetup()
	return ParticipantsText(m)
}

// ParticipantsText renders "N / max" for m, with "?" for an unset capacity.
func ParticipantsText(m Meetup) string {
	if m.MaxParticipants > 0 {
		return fmt.Sprintf("%d / %d", len(m.Participants), m.MaxParticipants)
	}
	return fmt.Sprintf("%d / ?", len(m.Participants))
}

// CategoryLabel joins m's categories for display.
func CategoryLabel(m Meetup) string { return strings.Join(m.Categories, ", ") }

// ReviewCountText renders the review count.
func (d *MeetupDetail) ReviewCountText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return CountText(len(d.reviews))
}

// Close stops listening for review events and cancels a pending refetch.
func (d *MeetupDetail) Close() error {
	d.closeOnce.Do(func() {
		d.sub.Unsubscribe()
		d.debounce.Stop()
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
	})
	return nil
}
