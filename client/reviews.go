package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/meetupz/meetupz/client/internal/bus"
)

// Reviews caches reviews per meetup for one view.
//
// While open it listens for review-added and refetches the named meetup's
// reviews if, and only if, that meetup is already tracked. Refetches are
// debounced per meetup.
type Reviews struct {
	c *Client

	mu       sync.RWMutex
	byMeetup map[string][]Review
	order    []string
	pending  map[string]*bus.Debouncer
	closed   bool

	sub       *bus.Subscription
	closeOnce sync.Once
}

// NewReviews creates an empty aggregate subscribed to review-added.
func (c *Client) NewReviews() *Reviews {
	r := &Reviews{
		c:        c,
		byMeetup: make(map[string][]Review),
		pending:  make(map[string]*bus.Debouncer),
	}
	r.sub = c.bus.Subscribe("reviews", r.onReviewAdded, bus.ReviewAdded)
	return r
}

func (r *Reviews) onReviewAdded(_ context.Context, evt bus.Event) error {
	if evt.MeetupID == "" {
		return nil
	}
	if d := r.debouncerFor(evt.MeetupID); d != nil {
		d.Trigger()
	}
	return nil
}

// debouncerFor returns the refetch debouncer of a tracked meetup, creating
// it on first use. It returns nil for untracked meetups and after Close.
func (r *Reviews) debouncerFor(meetupID string) *bus.Debouncer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMeetup[meetupID]; !ok || r.closed {
		return nil
	}
	d, ok := r.pending[meetupID]
	if !ok {
		d = bus.NewDebouncer(r.c.debounce, func() { r.refetch(meetupID) })
		r.pending[meetupID] = d
	}
	return d
}

func (r *Reviews) refetch(meetupID string) {
	ctx, cancel := r.c.refetchContext()
	defer cancel()
	if _, err := r.FetchFor(ctx, meetupID); err != nil {
		refetchFailuresTotal.WithLabelValues("reviews").Inc()
		log.Warn().Err(err).Str("meetup_id", meetupID).Msg("reviews: refetch failed, keeping cached list")
	}
}

// FetchFor fetches one meetup's reviews and replaces its cached list.
func (r *Reviews) FetchFor(ctx context.Context, meetupID string) ([]Review, error) {
	rs, err := r.c.ListReviews(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	r.store(meetupID, rs)
	return cloneReviews(rs), nil
}

// FetchForMany fetches several meetups' reviews in parallel and returns
// them flattened in the order of meetupIDs. A meetup whose fetch fails
// contributes no reviews and keeps its previous cached list.
func (r *Reviews) FetchForMany(ctx context.Context, meetupIDs []string) []Review {
	results := make([][]Review, len(meetupIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.c.fanout)
	for i, id := range meetupIDs {
		i, id := i, id
		g.Go(func() error {
			rs, err := r.FetchFor(gctx, id)
			if err != nil {
				log.Warn().Err(err).Str("meetup_id", id).Msg("reviews: fetch failed, treating as empty")
				return nil
			}
			results[i] = rs
			return nil
		})
	}
	_ = g.Wait()

	out := []Review{}
	for _, rs := range results {
		out = append(out, rs...)
	}
	return out
}

// Submit validates and posts a review, appends it to the meetup's cached
// list and publishes review-added for that meetup.
func (r *Reviews) Submit(ctx context.Context, meetupID string, rating int, comment string) (*Review, error) {
	rev, err := r.c.CreateReview(ctx, meetupID, rating, comment)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if !r.closed {
		if _, ok := r.byMeetup[meetupID]; !ok {
			r.order = append(r.order, meetupID)
		}
		r.byMeetup[meetupID] = append(r.byMeetup[meetupID], *rev)
	}
	r.mu.Unlock()
	r.c.publish(bus.ReviewAdded, meetupID)
	return rev, nil
}

func (r *Reviews) store(meetupID string, rs []Review) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, ok := r.byMeetup[meetupID]; !ok {
		r.order = append(r.order, meetupID)
	}
	r.byMeetup[meetupID] = cloneReviews(rs)
}

// Tracks reports whether meetupID has a cached list.
func (r *Reviews) Tracks(meetupID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byMeetup[meetupID]
	return ok
}

// For returns the cached reviews of one meetup.
func (r *Reviews) For(meetupID string) []Review {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneReviews(r.byMeetup[meetupID])
}

// All returns every cached review, grouped by meetup in first-fetched order.
func (r *Reviews) All() []Review {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Review{}
	for _, id := range r.order {
		out = append(out, r.byMeetup[id]...)
	}
	return out
}

// Close unsubscribes, cancels pending refetches and stops accepting results.
func (r *Reviews) Close() error {
	r.closeOnce.Do(func() {
		r.sub.Unsubscribe()
		r.mu.Lock()
		r.closed = true
		pending := r.pending
		r.pending = map[string]*bus.Debouncer{}
		r.mu.Unlock()
		for _, d := range pending {
			d.Stop()
		}
	})
	return nil
}

// CountText renders a review count with the right plural.
func CountText(n int) string {
	if n == 1 {
		return "1 review"
	}
	return fmt.Sprintf("%d reviews", n)
}

// AverageRating returns the mean rating of rs, or 0 for none.
func AverageRating(rs []Review) float64 {
	if len(rs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs))
}

func cloneReviews(rs []Review) []Review {
	out := make([]Review, len(rs))
	copy(out, rs)
	return out
}
