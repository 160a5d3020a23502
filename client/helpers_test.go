package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meetupz/meetupz/internal/fakebackend"
)

var (
	stockholm = time.FixedZone("CET", 3600)
	fixedNow  = time.Date(2024, 11, 1, 12, 0, 0, 0, stockholm)
)

const (
	annaEmail = "anna@example.com"
	annaPass  = "secret"
)

// newBackend starts a fake backend with user u1 (Anna) and meetups A and B.
func newBackend(t *testing.T) *fakebackend.Server {
	t.Helper()
	fb := fakebackend.New()
	t.Cleanup(fb.Close)
	fb.AddUser(fakebackend.User{ID: "u1", Name: "Anna", Email: annaEmail, Password: annaPass})
	fb.AddUser(fakebackend.User{ID: "u2", Name: "Bo", Email: "bo@example.com", Password: "pw"})
	fb.AddMeetup(fakebackend.Meetup{
		ID: "A", Title: "Go meetup", Description: "Talks and pizza", Location: "Stockholm",
		Host: "Bo", Categories: []string{"Tech"}, MaxParticipants: 10,
		Date: time.Date(2024, 11, 2, 18, 0, 0, 0, stockholm),
	})
	fb.AddMeetup(fakebackend.Meetup{
		ID: "B", Title: "Morning run", Description: "5k", Location: "Uppsala",
		Host: annaEmail, Categories: []string{"Sport"}, MaxParticipants: 2,
		Participants: []string{"u2"},
		Date:         time.Date(2024, 11, 3, 9, 0, 0, 0, stockholm),
	})
	return fb
}

// newClient returns a client on fb with no debounce and a fixed clock.
func newClient(t *testing.T, fb *fakebackend.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithRefreshDebounce(0),
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(stockholm),
	}
	c, err := New(fb.URL(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func login(t *testing.T, c *Client) {
	t.Helper()
	_, err := c.Login(context.Background(), annaEmail, annaPass)
	require.NoError(t, err)
}

func flush(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Bus().Flush(ctx))
}

func ids(ms []Meetup) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
