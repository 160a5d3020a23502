package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetupz/meetupz/client/internal/bus"
	"github.com/meetupz/meetupz/client/internal/filter"
	"github.com/meetupz/meetupz/client/internal/identity"
	"github.com/meetupz/meetupz/client/internal/localstate"
)

// ParticipantOp says whether an optimistic patch adds or removes.
type ParticipantOp int

const (
	AddParticipant ParticipantOp = iota
	RemoveParticipant
)

func (op ParticipantOp) String() string {
	if op == RemoveParticipant {
		return "remove"
	}
	return "add"
}

// Directory holds one view's copy of the meetup collection.
//
// Load replaces the collection wholesale. Join and leave patch it locally
// (ApplyOptimisticParticipant) until the next load reconciles with the
// backend. While open, the directory reloads itself on meetup-updated and
// refresh-meetups, debounced. After Close, in-flight loads are discarded.
type Directory struct {
	c *Client

	mu        sync.RWMutex
	meetups   []Meetup
	loaded    bool
	observers map[int]func([]Meetup)
	nextObs   int

	sub      *bus.Subscription
	debounce *bus.Debouncer

	closeOnce sync.Once
	closed    bool // guarded by mu
}

// NewDirectory creates an empty directory subscribed to refresh events.
func (c *Client) NewDirectory() *Directory {
	d := &Directory{c: c, observers: make(map[int]func([]Meetup))}
	d.debounce = bus.NewDebouncer(c.debounce, d.refresh)
	d.sub = c.bus.Subscribe("directory", func(context.Context, bus.Event) error {
		d.debounce.Trigger()
		return nil
	}, bus.MeetupUpdated, bus.RefreshMeetups)
	return d
}

// refresh is the debounced reaction to a bus event. Failures stay local.
func (d *Directory) refresh() {
	ctx, cancel := d.c.refetchContext()
	defer cancel()
	if err := d.Load(ctx); err != nil {
		refetchFailuresTotal.WithLabelValues("directory").Inc()
		log.Warn().Err(err).Msg("directory: refresh failed, keeping previous collection")
	}
}

// Load fetches the full collection and replaces the local copy. On failure
// the previous collection is kept and the error matches ErrFetchFailed.
func (d *Directory) Load(ctx context.Context) error {
	ms, err := d.c.ListMeetups(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if !d.replace(ms) {
		return nil
	}
	d.writeSnapshot(ctx, ms)
	return nil
}

// replace installs ms and notifies observers. It returns false when the
// directory is closed and the result was dropped.
func (d *Directory) replace(ms []Meetup) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Debug().Msg("directory: closed, dropping loaded collection")
		return false
	}
	d.meetups = ms
	d.loaded = true
	obs := make([]func([]Meetup), 0, len(d.observers))
	for _, fn := range d.observers {
		obs = append(obs, fn)
	}
	d.mu.Unlock()

	for _, fn := range obs {
		fn(cloneAll(ms))
	}
	return true
}

func (d *Directory) writeSnapshot(ctx context.Context, ms []Meetup) {
	raw, err := json.Marshal(ms)
	if err != nil {
		log.Warn().Err(err).Msg("directory: encode snapshot")
		return
	}
	if err := d.c.store.Put(ctx, localstate.KeyMeetupsCache, string(raw)); err != nil {
		log.Warn().Err(err).Msg("directory: write snapshot")
	}
}

// RestoreSnapshot fills an unloaded directory from the snapshot written by
// the last successful load. It reports whether a snapshot was applied.
func (d *Directory) RestoreSnapshot(ctx context.Context) (bool, error) {
	raw, ok, err := d.c.store.Get(ctx, localstate.KeyMeetupsCache)
	if err != nil || !ok {
		return false, err
	}
	var ms []Meetup
	if err := json.Unmarshal([]byte(raw), &ms); err != nil {
		return false, fmt.Errorf("decode meetup snapshot: %w", err)
	}
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return false, nil
	}
	if ms == nil {
		ms = []Meetup{}
	}
	return d.replace(ms), nil
}

// Loaded reports whether the directory holds a collection.
func (d *Directory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Meetups returns a copy of the collection in backend order.
func (d *Directory) Meetups() []Meetup {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneAll(d.meetups)
}

// Get returns a copy of one meetup.
func (d *Directory) Get(meetupID string) (Meetup, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.meetups {
		if m.ID == meetupID {
			return m.Clone(), true
		}
	}
	return Meetup{}, false
}

// Filter applies c to the collection. A nil c.Loc uses the client's zone.
func (d *Directory) Filter(c Criteria) []Meetup {
	if c.Loc == nil {
		c.Loc = d.c.loc
	}
	return cloneAll(filter.Apply(d.snapshot(), c))
}

// Upcoming applies c and then keeps meetups that started no earlier than
// the grace window before now.
func (d *Directory) Upcoming(c Criteria) []Meetup {
	return filter.Upcoming(d.Filter(c), d.c.now(), d.c.grace)
}

// Locations returns the distinct locations in first-seen order.
func (d *Directory) Locations() []string {
	return filter.Locations(d.snapshot())
}

func (d *Directory) snapshot() []Meetup {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meetups
}

// ApplyOptimisticParticipant adds or removes userKey on one meetup without
// a network call. It reports whether the meetup was found. Adding an
// existing participant or removing an absent one is a no-op.
func (d *Directory) ApplyOptimisticParticipant(meetupID, userKey string, op ParticipantOp) bool {
	key := identity.Normalize(userKey)
	if key == "" {
		return false
	}

	d.mu.Lock()
	idx := -1
	for i := range d.meetups {
		if d.meetups[i].ID == meetupID {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return false
	}
	// Copy-on-write: slices handed out by earlier reads stay untouched.
	next := make([]Meetup, len(d.meetups))
	copy(next, d.meetups)
	m := next[idx].Clone()
	switch op {
	case AddParticipant:
		if !IsRegistered(m, key) {
			m.Participants = append(m.Participants, key)
		}
	case RemoveParticipant:
		kept := m.Participants[:0]
		for _, p := range m.Participants {
			if !identity.Same(p, key) {
				kept = append(kept, p)
			}
		}
		m.Participants = kept
	}
	next[idx] = m
	d.meetups = next
	obs := make([]func([]Meetup), 0, len(d.observers))
	for _, fn := range d.observers {
		obs = append(obs, fn)
	}
	d.mu.Unlock()

	optimisticPatchesTotal.WithLabelValues(op.String()).Inc()
	for _, fn := range obs {
		fn(cloneAll(next))
	}
	return true
}

// OnChange registers fn to be called with the new collection after every
// successful load or optimistic patch. The returned func removes it.
func (d *Directory) OnChange(fn func([]Meetup)) (cancel func()) {
	d.mu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

// Close unsubscribes from the bus and discards results of loads still in
// flight. The requests themselves are not aborted.
func (d *Directory) Close() error {
	d.closeOnce.Do(func() {
		d.sub.Unsubscribe()
		d.debounce.Stop()
		d.mu.Lock()
		d.closed = true
		d.observers = map[int]func([]Meetup){}
		d.mu.Unlock()
	})
	return nil
}

func cloneAll(ms []Meetup) []Meetup {
	out := make([]Meetup, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}
