package client

import (
	"context"

	"github.com/meetupz/meetupz/client/internal/bus"
	"github.com/meetupz/meetupz/client/internal/filter"
	"github.com/meetupz/meetupz/client/internal/identity"
	"github.com/meetupz/meetupz/client/internal/localstate"
	"github.com/meetupz/meetupz/client/internal/types"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	// Domain entities
	Meetup = types.Meetup
	Review = types.Review
	User   = types.User

	// Requests
	CreateMeetupRequest = types.CreateMeetupRequest

	// Filtering
	Criteria = filter.Criteria
	Day      = filter.Day

	// Refresh bus
	Bus       = bus.Bus
	Event     = bus.Event
	EventKind = bus.Kind
	Handler   = bus.Handler

	// Client-local storage
	LocalStore = localstate.Store
)

// Event kinds.
const (
	MeetupUpdated  = bus.MeetupUpdated
	ReviewAdded    = bus.ReviewAdded
	RefreshMeetups = bus.RefreshMeetups
)

// AllCategories disables category filtering.
const AllCategories = filter.AllCategories

// DefaultCategories are the category choices offered when creating.
var DefaultCategories = filter.DefaultCategories

// Rating bounds.
const (
	MinRating = types.MinRating
	MaxRating = types.MaxRating
)

// NewBus creates a refresh bus that can be shared between clients.
func NewBus() *Bus { return bus.New() }

// ParseDay parses YYYY-MM-DD; empty input yields the zero Day.
func ParseDay(s string) (Day, error) { return filter.ParseDay(s) }

// ApplyFilter returns the meetups of src matching c, in source order.
func ApplyFilter(src []Meetup, c Criteria) []Meetup { return filter.Apply(src, c) }

// IdentityKey returns the canonical key for a user reference.
func IdentityKey(id, email, name string) string { return identity.Key(id, email, name) }

// OpenLocalStore opens the SQLite-backed store under dir ($MEETUPZ_HOME or
// ~/.meetupz when empty).
func OpenLocalStore(ctx context.Context, dir string) (*LocalStore, error) {
	return localstate.Open(ctx, dir)
}
