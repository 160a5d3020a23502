package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetupz/meetupz/internal/fakebackend"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNew_Defaults(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, 30*time.Second, c.http.Timeout)
	assert.Equal(t, 300*time.Millisecond, c.debounce)
	assert.Equal(t, time.Hour, c.grace)
	assert.False(t, c.Session().Authenticated())
}

func TestNew_RejectsBadOptions(t *testing.T) {
	for _, opt := range []Option{
		WithHTTPTimeout(0),
		WithHTTPClient(nil),
		WithRefreshDebounce(-time.Second),
		WithReviewFanout(0),
		WithClock(nil),
		WithLocation(nil),
		WithStore(nil),
		WithBus(nil),
	} {
		_, err := New("http://example.com", opt)
		assert.Error(t, err)
	}
}

func TestAuthTransport_AddsTokenOnlyWithSession(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []http.Header
	)
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		seen = append(seen, r.Header.Clone())
		mu.Unlock()
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: make(http.Header), Request: r}, nil
	})
	c, err := New("http://example.com/api", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, err = c.ListMeetups(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Session().Begin(ctx, "tok-1", User{ID: "u1"}))
	_, err = c.ListMeetups(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Empty(t, seen[0].Get("Authorization"))
	assert.Equal(t, "Bearer tok-1", seen[1].Get("Authorization"))
	assert.NotEmpty(t, seen[0].Get("X-Request-ID"))
	assert.NotEqual(t, seen[0].Get("X-Request-ID"), seen[1].Get("X-Request-ID"))
}

func TestNew_AutoEnableDebugViaEnv(t *testing.T) {
	t.Setenv("MEETUPZ_DEBUG", "true")
	c, err := New("http://example.com")
	require.NoError(t, err)
	defer c.Close()
	at, ok := c.http.Transport.(*authTransport)
	require.True(t, ok)
	_, ok = at.base.(*debugTransport)
	assert.True(t, ok, "expected debugTransport under the auth transport")
}

func TestDebugTransport_ErrorPath(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	c, err := New("http://example.com", WithHTTPClient(&http.Client{Transport: rt}), WithDebugLogging(true))
	require.NoError(t, err)
	defer c.Close()
	_, err = c.ListMeetups(context.Background())
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestWithHTTPClient_DoesNotMutateCaller(t *testing.T) {
	hc := &http.Client{Timeout: 3 * time.Second}
	c, err := New("http://example.com", WithHTTPClient(hc))
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, hc.Transport)
	assert.Equal(t, 3*time.Second, c.http.Timeout)
}

func TestMutationsRequireSession(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	ctx := context.Background()

	assert.True(t, IsUnauthenticated(c.JoinMeetup(ctx, "A")))
	assert.True(t, IsUnauthenticated(c.LeaveMeetup(ctx, "A")))
	assert.True(t, IsUnauthenticated(c.DeleteMeetup(ctx, "A")))
	_, err := c.CreateReview(ctx, "A", 4, "")
	assert.True(t, IsUnauthenticated(err))
	assert.Zero(t, fb.Calls(fakebackend.RouteJoin)+fb.Calls(fakebackend.RouteLeave)+
		fb.Calls(fakebackend.RouteDeleteMeetup)+fb.Calls(fakebackend.RouteCreateReview))
}

func TestLoginLogout(t *testing.T) {
	fb := newBackend(t)
	kv := NewMemoryKV()
	c := newClient(t, fb, WithStore(kv))
	ctx := context.Background()

	_, err := c.Login(ctx, annaEmail, "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "Invalid email or password", UserMessage(err))
	assert.False(t, c.Session().Authenticated())

	u, err := c.Login(ctx, " "+annaEmail+" ", annaPass)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "u1", c.Session().Key())
	tok, ok, _ := kv.Get(ctx, "token")
	assert.True(t, ok)
	assert.Equal(t, "tok-u1", tok)

	require.NoError(t, c.Logout(ctx))
	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.Session().Authenticated())
	_, ok, _ = kv.Get(ctx, "user")
	assert.False(t, ok)
}

func TestSignup(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	ctx := context.Background()

	u, err := c.Signup(ctx, "Cleo", "cleo@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Cleo", u.Name)
	assert.False(t, c.Session().Authenticated(), "signup does not log in")

	_, err = c.Signup(ctx, "Cleo", "cleo@example.com", "pw")
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "User already exists", UserMessage(err))
}

func TestCreateMeetup(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	ctx := context.Background()
	draft := MeetupDraft{
		Title: "Board games", Location: "Malmö", Day: Day{Year: 2024, Month: time.December, Day: 1}, Time: "19:30",
		Categories: []string{"Art"}, MaxAttendees: 8, Info: "Bring a game",
	}

	_, err := c.CreateMeetup(ctx, draft)
	assert.True(t, IsUnauthenticated(err))

	bad := draft
	bad.Title = " "
	_, err = c.CreateMeetup(ctx, bad)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Zero(t, fb.Calls(fakebackend.RouteCreateMeetup))

	login(t, c)
	past := draft
	past.Day = Day{Year: 2024, Month: time.October, Day: 1}
	_, err = c.CreateMeetup(ctx, past)
	assert.True(t, errors.Is(err, ErrValidation), "dates before the client clock are rejected")
	assert.Zero(t, fb.Calls(fakebackend.RouteCreateMeetup))

	var (
		mu  sync.Mutex
		got []Event
	)
	sub := c.Bus().Subscribe("test", func(_ context.Context, e Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	})
	defer sub.Unsubscribe()

	m, err := c.CreateMeetup(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "Anna", m.Host)
	assert.True(t, m.Date.Equal(time.Date(2024, 12, 1, 19, 30, 0, 0, stockholm)))
	flush(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, RefreshMeetups, got[0].Kind)
}

func TestDeleteMeetup(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	login(t, c)
	ctx := context.Background()

	dir := c.NewDirectory()
	defer dir.Close()
	require.NoError(t, dir.Load(ctx))
	require.Len(t, dir.Meetups(), 2)

	require.NoError(t, c.DeleteMeetup(ctx, "A"))
	flush(t, c)
	assert.Equal(t, []string{"B"}, ids(dir.Meetups()))

	err := c.DeleteMeetup(ctx, "A")
	assert.True(t, IsNotFound(err))
}

func TestGetMeetup_NotFound(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	_, err := c.GetMeetup(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Meetup not found", UserMessage(err))
}
