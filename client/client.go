package client

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meetupz/meetupz/client/internal/api"
	"github.com/meetupz/meetupz/client/internal/bus"
	"github.com/meetupz/meetupz/client/internal/types"
)

// DefaultBaseURL is used when New is given an empty base URL.
const DefaultBaseURL = "http://localhost:8080/api"

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

// Client talks to the MeetUpz backend and owns the state shared by the
// views created from it: the session and the refresh bus.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	bus     *bus.Bus
	ownBus  bool

	// Construction-time settings; see options.go.
	baseHTTP    *http.Client
	httpTimeout time.Duration
	debug       bool
	store       KV
	debounce    time.Duration
	grace       time.Duration
	fanout      int
	now         func() time.Time
	loc         *time.Location

	// bg bounds background refetches; Close cancels it.
	bg       context.Context
	cancelBg context.CancelFunc

	closedOnce uint32
}

// New constructs a Client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpTimeout: 30 * time.Second,
		debounce:    300 * time.Millisecond,
		grace:       time.Hour,
		fanout:      8,
		now:         time.Now,
		loc:         time.Local,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		c.debug = true
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		c.store = NewMemoryKV()
	}
	c.session = NewSession(c.store)
	if c.bus == nil {
		c.bus = bus.New()
		c.ownBus = true
	}
	c.http = c.buildHTTPClient()
	c.bg, c.cancelBg = context.WithCancel(context.Background())
	return c, nil
}

// buildHTTPClient layers the transports: auth on top, debug dump below it.
func (c *Client) buildHTTPClient() *http.Client {
	hc := &http.Client{}
	if c.baseHTTP != nil {
		copied := *c.baseHTTP
		hc = &copied
	}
	if hc.Timeout == 0 || c.baseHTTP == nil {
		hc.Timeout = c.httpTimeout
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if c.debug {
		base = &debugTransport{base: base}
	}
	hc.Transport = &authTransport{base: base, session: c.session}
	return hc
}

// authTransport adds the session bearer token, when there is one, and a
// request id to every request.
type authTransport struct {
	base    http.RoundTripper
	session *Session
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	if tok := t.session.Token(); tok != "" {
		cloned.Header.Set("Authorization", "Bearer "+tok)
	}
	if cloned.Header.Get("X-Request-ID") == "" {
		cloned.Header.Set("X-Request-ID", uuid.NewString())
	}
	return t.base.RoundTrip(cloned)
}

// Close stops the refresh bus if the client created it. Safe to call
// multiple times. Views created from the client should be closed first.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.cancelBg()
	if c.ownBus {
		return c.bus.Close()
	}
	return nil
}

// Session returns the identity context.
func (c *Client) Session() *Session { return c.session }

// Bus returns the refresh bus shared by the client's views.
func (c *Client) Bus() *Bus { return c.bus }

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Now returns the client's current time.
func (c *Client) Now() time.Time { return c.now() }

// Location returns the zone used for calendar-day comparisons.
func (c *Client) Location() *time.Location { return c.loc }

func (c *Client) publish(kind bus.Kind, meetupID string) {
	n := c.bus.Publish(bus.Event{Kind: kind, MeetupID: meetupID})
	log.Debug().Str("kind", string(kind)).Str("meetup_id", meetupID).Int("subscribers", n).Msg("published")
}

// --------------------------------------------------------------------
// Meetup operations - delegated to internal/api
// --------------------------------------------------------------------

// ListMeetups fetches the full collection.
func (c *Client) ListMeetups(ctx context.Context) ([]Meetup, error) {
	ms, err := api.ListMeetups(ctx, c.http, c.baseURL, c.loc)
	observe("list meetups", err)
	return ms, err
}

// GetMeetup fetches one meetup.
func (c *Client) GetMeetup(ctx context.Context, meetupID string) (*Meetup, error) {
	m, err := api.GetMeetup(ctx, c.http, c.baseURL, meetupID, c.loc)
	observe("get meetup", err)
	return m, err
}

// CreateMeetup validates draft, submits it and publishes refresh-meetups.
// Validation failures are returned before any network call.
func (c *Client) CreateMeetup(ctx context.Context, draft MeetupDraft) (*Meetup, error) {
	const op = "create meetup"
	user, _ := c.session.User()
	req, err := draft.Build(user, c.loc, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.session.RequireToken(op); err != nil {
		return nil, err
	}
	m, err := api.CreateMeetup(ctx, c.http, c.baseURL, req, c.loc)
	observe(op, err)
	if err != nil {
		return nil, err
	}
	c.publish(bus.RefreshMeetups, m.ID)
	return m, nil
}

// DeleteMeetup removes a meetup and publishes meetup-updated.
func (c *Client) DeleteMeetup(ctx context.Context, meetupID string) error {
	const op = "delete meetup"
	if err := c.session.RequireToken(op); err != nil {
		return err
	}
	err := api.DeleteMeetup(ctx, c.http, c.baseURL, meetupID)
	observe(op, err)
	if err != nil {
		return err
	}
	c.publish(bus.MeetupUpdated, meetupID)
	return nil
}

// JoinMeetup calls the join endpoint only. Membership.Register adds the
// capacity check, the optimistic patch and the notification.
func (c *Client) JoinMeetup(ctx context.Context, meetupID string) error {
	const op = "join meetup"
	if err := c.session.RequireToken(op); err != nil {
		return err
	}
	err := api.JoinMeetup(ctx, c.http, c.baseURL, meetupID)
	observe(op, err)
	return err
}

// LeaveMeetup calls the leave endpoint only.
func (c *Client) LeaveMeetup(ctx context.Context, meetupID string) error {
	const op = "leave meetup"
	if err := c.session.RequireToken(op); err != nil {
		return err
	}
	err := api.LeaveMeetup(ctx, c.http, c.baseURL, meetupID)
	observe(op, err)
	return err
}

// --------------------------------------------------------------------
// Review operations
// --------------------------------------------------------------------

// ListReviews fetches the reviews of one meetup.
func (c *Client) ListReviews(ctx context.Context, meetupID string) ([]Review, error) {
	rs, err := api.ListReviews(ctx, c.http, c.baseURL, meetupID)
	observe("list reviews", err)
	return rs, err
}

// CreateReview validates and posts a review without touching any
// aggregate; see Reviews.Submit.
func (c *Client) CreateReview(ctx context.Context, meetupID string, rating int, comment string) (*Review, error) {
	const op = "submit review"
	if err := types.ValidateRating(op, rating); err != nil {
		return nil, err
	}
	if err := c.session.RequireToken(op); err != nil {
		return nil, err
	}
	r, err := api.CreateReview(ctx, c.http, c.baseURL, meetupID, types.CreateReviewRequest{
		Rating:    rating,
		Comment:   comment,
		CreatedAt: c.now().UTC(),
	})
	observe(op, err)
	if err != nil {
		return nil, err
	}
	if r.Author == (User{}) {
		r.Author, _ = c.session.User()
	}
	return r, nil
}

// --------------------------------------------------------------------
// Authentication
// --------------------------------------------------------------------

// Login authenticates and begins the session.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	resp, err := api.Login(ctx, c.http, c.baseURL, types.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	observe("login", err)
	if err != nil {
		return User{}, err
	}
	user := resp.User
	if user.Email == "" {
		user.Email = strings.TrimSpace(email)
	}
	if err := c.session.Begin(ctx, resp.Token, user); err != nil {
		return User{}, err
	}
	log.Info().Str("user", user.Key()).Msg("logged in")
	return user, nil
}

// Signup creates an account. The caller logs in separately.
func (c *Client) Signup(ctx context.Context, name, email, password string) (User, error) {
	resp, err := api.Signup(ctx, c.http, c.baseURL, types.SignupRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	observe("signup", err)
	if err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Logout ends the session. It is idempotent.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.End(ctx)
}

func (c *Client) httpTimeoutOrDefault() time.Duration {
	if c.http != nil && c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return 30 * time.Second
}

// refetchContext bounds a background refetch by the HTTP timeout and by the
// client's lifetime.
func (c *Client) refetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.bg, c.httpTimeoutOrDefault())
}
