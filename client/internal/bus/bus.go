// Package bus is the in-process publish/subscribe channel that tells
// independent views that backend state changed and they should refetch.
//
// Publish never runs handlers on the caller's goroutine. Each subscription
// owns a single-worker executor, so its deliveries run in publish order and
// a slow or failing handler holds up only its own subscription.
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/meetupz/meetupz/client/internal/shardqueue"
)

// Kind names an event.
type Kind string

const (
	// MeetupUpdated: a meetup was joined, left, deleted or otherwise changed.
	MeetupUpdated Kind = "meetup-updated"
	// ReviewAdded: a review was submitted; MeetupID names the meetup.
	ReviewAdded Kind = "review-added"
	// RefreshMeetups: the whole collection should be refetched.
	RefreshMeetups Kind = "refresh-meetups"
)

// Kinds lists every event kind.
var Kinds = []Kind{MeetupUpdated, ReviewAdded, RefreshMeetups}

// Event is a change notification. MeetupID is empty when the change is not
// tied to one meetup.
type Event struct {
	Kind     Kind
	MeetupID string
}

// Handler reacts to an event. A returned error is logged and counted; it
// never reaches the publisher or other subscribers.
type Handler func(ctx context.Context, evt Event) error

// Executor runs handler jobs; *shardqueue.ShardExecutor satisfies it.
type Executor interface {
	Submit(ctx context.Context, key string, job shardqueue.Job) error
	Barrier(ctx context.Context, key string) error
	Stop()
}

// Subscription is a live registration returned by Subscribe.
type Subscription struct {
	ID   string
	Name string

	bus     *Bus
	kinds   map[Kind]struct{}
	handler Handler
	exec    Executor
	ownExec bool

	mu     sync.RWMutex
	active bool
}

// Unsubscribe stops delivery. Deliveries already queued are dropped. It is
// safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Unsubscribe(s)
}

func (s *Subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// deactivate reports whether s was active.
func (s *Subscription) deactivate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.active
	s.active = false
	return was
}

func (s *Subscription) isActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Bus fans events out to subscriptions.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription

	shared Executor
	lane   shardqueue.Config

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Option configures a Bus.
type Option func(*Bus)

// WithExecutor runs every subscription's handlers on exec, keyed by
// subscription ID, instead of on per-subscription lanes. Subscriptions that
// hash to the same shard then share a worker. The bus does not stop an
// executor it did not create.
func WithExecutor(exec Executor) Option {
	return func(b *Bus) { b.shared = exec }
}

// New creates a bus. Without WithExecutor each subscription gets its own
// one-shard executor, sized from MEETUPZ_SQ_QUEUE_SIZE and
// MEETUPZ_SQ_ENQUEUE_TIMEOUT, which is stopped when the subscription ends.
func New(opts ...Option) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		subs:   make(map[string]*Subscription),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(b)
	}
	if b.shared == nil {
		cfg, err := shardqueue.LoadConfig()
		if err != nil {
			log.Warn().Err(err).Msg("bus: invalid executor config, using defaults")
			cfg = shardqueue.Config{}
		}
		cfg.Shards = 1
		cfg.ErrorHandler = logFailure
		b.lane = cfg
	}
	return b
}

// executorFor returns the executor for a new subscription and whether the
// subscription owns it.
func (b *Bus) executorFor() (Executor, bool) {
	if b.shared != nil {
		return b.shared, false
	}
	return shardqueue.NewShardExecutor(b.lane), true
}

// Subscribe registers h for the given kinds (all kinds when none are given).
// name identifies the subscriber in logs.
func (b *Bus) Subscribe(name string, h Handler, kinds ...Kind) *Subscription {
	s := &Subscription{
		ID:      uuid.NewString(),
		Name:    name,
		bus:     b,
		kinds:   make(map[Kind]struct{}, len(kinds)),
		handler: h,
		active:  true,
	}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}
	if b.ctx.Err() != nil {
		// Closed bus: the subscription never receives anything.
		s.active = false
		return s
	}
	s.exec, s.ownExec = b.executorFor()
	b.mu.Lock()
	b.subs[s.ID] = s
	n := len(b.subs)
	b.mu.Unlock()
	subscribersGauge.Set(float64(n))
	log.Debug().Str("subscription", s.ID).Str("name", name).Msg("bus: subscribed")
	return s
}

// Unsubscribe removes s. Unknown or already removed subscriptions are ignored.
// It does not wait for a delivery that is still running.
func (b *Bus) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	if !s.deactivate() {
		return
	}

	b.mu.Lock()
	delete(b.subs, s.ID)
	n := len(b.subs)
	b.mu.Unlock()
	subscribersGauge.Set(float64(n))
	if s.ownExec {
		go s.exec.Stop()
	}
}

// Publish schedules one delivery of evt per matching subscription and
// returns the number scheduled. It does not wait for handlers.
func (b *Bus) Publish(evt Event) int {
	publishesTotal.WithLabelValues(string(evt.Kind)).Inc()

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(evt.Kind) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	scheduled := 0
	for _, s := range targets {
		if err := s.exec.Submit(b.ctx, s.ID, deliver(s, evt)); err != nil {
			if errors.Is(err, shardqueue.ErrExecutorClosed) && !s.isActive() {
				continue
			}
			droppedTotal.WithLabelValues(string(evt.Kind)).Inc()
			log.Warn().Err(err).Str("subscription", s.Name).Str("kind", string(evt.Kind)).Msg("bus: delivery dropped")
			continue
		}
		scheduled++
	}
	return scheduled
}

// Flush waits until every delivery queued so far has been handled.
func (b *Bus) Flush(ctx context.Context) error {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		err := s.exec.Barrier(ctx, s.ID)
		if errors.Is(err, shardqueue.ErrExecutorClosed) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Close drops all subscriptions, cancels the context handed to running
// handlers and waits for the lanes it owns to finish.
func (b *Bus) Close() error {
	b.once.Do(func() {
		b.mu.Lock()
		subs := b.subs
		b.subs = make(map[string]*Subscription)
		b.mu.Unlock()
		for _, s := range subs {
			s.deactivate()
		}
		subscribersGauge.Set(0)
		b.cancel()
		for _, s := range subs {
			if s.ownExec {
				s.exec.Stop()
			}
		}
	})
	return nil
}

func deliver(s *Subscription, evt Event) shardqueue.Job {
	return shardqueue.JobFunc(func(ctx context.Context) error {
		if !s.isActive() {
			return nil
		}
		if err := s.handler(ctx, evt); err != nil {
			handlerFailuresTotal.WithLabelValues(string(evt.Kind)).Inc()
			log.Warn().Err(err).Str("subscription", s.Name).Str("kind", string(evt.Kind)).
				Str("meetup_id", evt.MeetupID).Msg("bus: handler failed")
		}
		return nil
	})
}

func logFailure(key string, err error) {
	log.Error().Stack().Err(errors.WithStack(err)).Str("subscription", key).Msg("bus: delivery failed")
}
