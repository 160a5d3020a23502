package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetupz/meetupz/client"
	"github.com/meetupz/meetupz/internal/fakebackend"
)

type cliEnv struct {
	fb      *fakebackend.Server
	dataDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	fb := fakebackend.New()
	t.Cleanup(fb.Close)
	fb.AddUser(fakebackend.User{ID: "u1", Name: "Anna", Email: "anna@example.com", Password: "secret"})
	fb.AddUser(fakebackend.User{ID: "u2", Name: "Bo", Email: "bo@example.com", Password: "pw"})
	soon := time.Now().Add(72 * time.Hour).Truncate(time.Minute)
	fb.AddMeetup(fakebackend.Meetup{
		ID: "A", Title: "Go meetup", Description: "Talks and pizza", Location: "Stockholm",
		Host: "Bo", Categories: []string{"Tech"}, MaxParticipants: 10, Date: soon,
	})
	fb.AddMeetup(fakebackend.Meetup{
		ID: "B", Title: "Morning run", Location: "Uppsala", Host: "anna@example.com",
		Categories: []string{"Sport"}, MaxParticipants: 1, Participants: []string{"u2"}, Date: soon.Add(24 * time.Hour),
	})
	fb.AddMeetup(fakebackend.Meetup{
		ID: "P", Title: "Retro", Location: "Stockholm", Host: "Bo", Categories: []string{"Tech"},
		Participants: []string{"u1"}, Date: time.Now().Add(-72 * time.Hour),
	})
	fb.AddReview(fakebackend.Review{MeetupID: "P", UserID: "u2", Rating: 4, Comment: "good talks"})

	t.Setenv("MEETUPZ_API_URL", fb.URL())
	t.Setenv("MEETUPZ_REFRESH_DEBOUNCE", "0s")
	t.Setenv("MEETUPZ_ENVIRONMENT", "testing")
	return &cliEnv{fb: fb, dataDir: t.TempDir()}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--data-dir", e.dataDir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "meetupz %v: %s", args, out)
	return out
}

func TestCLI_SessionLifecycle(t *testing.T) {
	e := newCLIEnv(t)

	assert.Contains(t, e.mustRun(t, "whoami"), "Not logged in")
	_, err := e.run(t, "login", "--email", "anna@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", client.UserMessage(err))

	assert.Contains(t, e.mustRun(t, "login", "--email", "anna@example.com", "--password", "secret"), "Logged in as Anna")
	assert.Contains(t, e.mustRun(t, "whoami"), "Anna <anna@example.com>")
	assert.Contains(t, e.mustRun(t, "logout"), "Logged out")
	assert.Contains(t, e.mustRun(t, "whoami"), "Not logged in")
	assert.Contains(t, e.mustRun(t, "logout"), "Logged out")
}

func TestCLI_Signup(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun(t, "signup", "--name", "Cy", "--email", "cy@example.com", "--password", "pw")
	assert.Contains(t, out, "Account created for Cy")
	assert.Contains(t, e.mustRun(t, "whoami"), "Not logged in")

	_, err := e.run(t, "signup", "--name", "Cy", "--email", "cy@example.com", "--password", "pw")
	assert.Equal(t, "User already exists", client.UserMessage(err))
}

func TestCLI_ListAndFilters(t *testing.T) {
	e := newCLIEnv(t)

	out := e.mustRun(t, "list")
	assert.Contains(t, out, "Go meetup")
	assert.Contains(t, out, "Morning run")
	assert.Contains(t, out, "(full)")
	assert.NotContains(t, out, "Retro")

	assert.Contains(t, e.mustRun(t, "list", "--all"), "Retro")

	out = e.mustRun(t, "list", "--category", "Tech", "--location", "Uppsala")
	assert.Contains(t, out, "No meetups found")

	out = e.mustRun(t, "list", "--search", "PIZZA")
	assert.Contains(t, out, "Go meetup")
	assert.NotContains(t, out, "Morning run")

	_, err := e.run(t, "list", "--date", "tomorrow")
	assert.Error(t, err)

	assert.Equal(t, "Stockholm\nUppsala\n", e.mustRun(t, "locations"))
}

func TestCLI_ListFallsBackToSnapshot(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "list")

	e.fb.Fail(fakebackend.RouteListMeetups, http.StatusBadGateway, "")
	assert.Contains(t, e.mustRun(t, "list", "--all"), "Retro")
}

func TestCLI_JoinLeaveAndProfile(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "join", "A")
	require.Error(t, err)
	assert.True(t, client.IsUnauthenticated(err))

	e.mustRun(t, "login", "--email", "anna@example.com", "--password", "secret")
	assert.Contains(t, e.mustRun(t, "join", "A"), "Registered for Go meetup (1 / 10)")
	assert.Contains(t, e.mustRun(t, "list", "--category", "Tech"), "(registered)")

	_, err = e.run(t, "join", "B")
	require.Error(t, err)
	assert.Equal(t, "meetup is full", client.UserMessage(err))
	assert.Equal(t, 1, e.fb.Calls(fakebackend.RouteJoin), "full meetup rejected before the network")

	out := e.mustRun(t, "profile")
	assert.Contains(t, out, "Created (1)")
	assert.Contains(t, out, "Joined (1)")
	assert.Contains(t, out, "Past (1)")
	assert.Contains(t, out, "Retro")
	assert.Contains(t, out, "1 review")

	assert.Contains(t, e.mustRun(t, "leave", "A"), "Left Go meetup (0 / 10)")
	stored, _ := e.fb.Meetup("A")
	assert.Empty(t, stored.Participants)
}

func TestCLI_ReviewsAndShow(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "login", "--email", "anna@example.com", "--password", "secret")

	_, err := e.run(t, "review", "P", "--rating", "9")
	require.Error(t, err)
	assert.Zero(t, e.fb.Calls(fakebackend.RouteCreateReview))

	assert.Contains(t, e.mustRun(t, "review", "P", "--rating", "5", "--comment", "great"), "Review saved: 5/5 for P")

	out := e.mustRun(t, "reviews", "P", "A")
	assert.Contains(t, out, "P: 2 reviews, average 4.5")
	assert.Contains(t, out, "A: 0 reviews")
	assert.Contains(t, out, "5/5  Anna: great")

	out = e.mustRun(t, "show", "P")
	assert.Contains(t, out, "Retro")
	assert.Contains(t, out, "Participants: 1 / ?")
	assert.Contains(t, out, "2 reviews")

	_, err = e.run(t, "show", "nope")
	assert.True(t, client.IsNotFound(err))
}

func TestCLI_CreateAndDelete(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "login", "--email", "anna@example.com", "--password", "secret")

	_, err := e.run(t, "create", "--title", "Jam", "--location", "Lund", "--date", "2030-05-01", "--time", "19:00", "--info", "Bring an instrument")
	require.Error(t, err)
	assert.Equal(t, "choose at least one category", client.UserMessage(err))
	assert.Zero(t, e.fb.Calls(fakebackend.RouteCreateMeetup))

	out := e.mustRun(t, "create", "--title", "Jam", "--location", "Lund", "--date", "2030-05-01",
		"--time", "19:00", "--category", "Music,Art", "--max", "12", "--info", "Bring an instrument")
	assert.Contains(t, out, "Meetup created:")
	out = e.mustRun(t, "list", "--category", "Music")
	assert.Contains(t, out, "Jam  @ Lund  [Music, Art]  0 / 12")

	assert.Contains(t, e.mustRun(t, "delete", "A"), "Meetup deleted: A")
	_, ok := e.fb.Meetup("A")
	assert.False(t, ok)
}

func TestCLI_Watch(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun(t, "watch", "--interval", "10ms", "--iterations", "2")
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("3 meetups")))
	assert.Equal(t, 3, e.fb.Calls(fakebackend.RouteListMeetups))

	_, err := e.run(t, "watch", "--interval", "0s", "--iterations", "1")
	assert.Error(t, err)
}

func TestCLI_WatchRunsFinalRefreshDespiteDebounce(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv("MEETUPZ_REFRESH_DEBOUNCE", "300ms")

	out := e.mustRun(t, "watch", "--interval", "10ms", "--iterations", "3")
	assert.GreaterOrEqual(t, e.fb.Calls(fakebackend.RouteListMeetups), 2, "initial load plus the last tick")
	assert.GreaterOrEqual(t, bytes.Count([]byte(out), []byte("3 meetups")), 2)
}

func TestCLI_FailureIsLoggedWithStack(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv("MEETUPZ_LOG_FORMAT", "json")
	prevOut, prevLogger, prevLevel := logOutput, log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		logOutput, log.Logger = prevOut, prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	var logs, stderr, out bytes.Buffer
	logOutput = &logs

	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--data-dir", e.dataDir, "--debug", "join", "A"})
	require.Equal(t, 1, execute(context.Background(), root, &stderr))
	assert.Contains(t, stderr.String(), "error: you must be logged in")

	var failure map[string]any
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, `"command failed"`) {
			require.NoError(t, json.Unmarshal([]byte(line), &failure))
		}
	}
	require.NotNil(t, failure, "logs: %s", logs.String())
	assert.Equal(t, "meetupz", failure["service"])
	assert.NotEmpty(t, failure["stack"])
}
