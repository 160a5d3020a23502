package client

// Functional options that configure the Client during construction.

import (
	"fmt"
	"net/http"
	"time"

	"github.com/meetupz/meetupz/client/internal/bus"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout bounds each HTTP request. Prefer per-call context
// deadlines; this is a coarse safety net. Must be > 0.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.httpTimeout = d
		return nil
	}
}

// WithHTTPClient uses a copy of hc as the base HTTP client. Its transport
// sits underneath the auth and debug wrappers; hc itself is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client must not be nil")
		}
		c.baseHTTP = hc
		return nil
	}
}

// WithDebugLogging dumps every request and response at debug level when
// enabled. Dumps include bearer tokens; do not enable in production.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = enabled
		return nil
	}
}

// WithStore persists the session (and the meetup snapshot) in kv instead
// of process memory.
func WithStore(kv KV) Option {
	return func(c *Client) error {
		if kv == nil {
			return fmt.Errorf("store must not be nil")
		}
		c.store = kv
		return nil
	}
}

// WithBus shares an existing refresh bus. The client will not close it.
func WithBus(b *bus.Bus) Option {
	return func(c *Client) error {
		if b == nil {
			return fmt.Errorf("bus must not be nil")
		}
		c.bus = b
		return nil
	}
}

// WithRefreshDebounce sets the window over which views collapse refresh
// events. Zero refetches on every event.
func WithRefreshDebounce(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("refresh debounce must be >= 0")
		}
		c.debounce = d
		return nil
	}
}

// WithUpcomingGrace sets how long after its start a meetup still counts as
// upcoming.
func WithUpcomingGrace(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("upcoming grace must be >= 0")
		}
		c.grace = d
		return nil
	}
}

// WithReviewFanout caps concurrent review fetches in Reviews.FetchForMany.
func WithReviewFanout(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("review fanout must be > 0")
		}
		c.fanout = n
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		c.now = now
		return nil
	}
}

// WithLocation sets the zone used to reduce meetup instants to calendar
// days and to read draft dates. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) error {
		if loc == nil {
			return fmt.Errorf("location must not be nil")
		}
		c.loc = loc
		return nil
	}
}
