package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetupz/meetupz/internal/fakebackend"
)

func TestOpenDetail(t *testing.T) {
	fb := newBackend(t)
	fb.AddReview(fakebackend.Review{MeetupID: "B", UserID: "u2", Rating: 4, Comment: "fun"})
	c := newClient(t, fb)

	d, err := c.OpenDetail(context.Background(), "B")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, "Morning run", d.Meetup().Title)
	assert.Equal(t, "1 / 2", d.ParticipantsText())
	assert.Equal(t, "1 review", d.ReviewCountText())
	assert.Equal(t, "fun", d.Reviews()[0].Comment)
}

func TestOpenDetail_NotFound(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	_, err := c.OpenDetail(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestOpenDetail_ReviewFailureLeavesEmptyList(t *testing.T) {
	fb := newBackend(t)
	fb.AddReview(fakebackend.Review{MeetupID: "A", UserID: "u2", Rating: 4})
	fb.Fail(fakebackend.RouteListReviews, http.StatusInternalServerError, "")
	c := newClient(t, fb)

	d, err := c.OpenDetail(context.Background(), "A")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, "0 reviews", d.ReviewCountText())

	err = d.RefreshReviews(context.Background())
	assert.True(t, errors.Is(err, ErrNetwork))

	fb.Heal()
	require.NoError(t, d.RefreshReviews(context.Background()))
	assert.Equal(t, "1 review", d.ReviewCountText())
}

func TestMeetupDetail_HungRefetchDoesNotStallOtherViews(t *testing.T) {
	t.Setenv("MEETUPZ_SQ_SHARDS", "1")
	fb := newBackend(t)
	c := newClient(t, fb)
	ctx := context.Background()

	detailA, err := c.OpenDetail(ctx, "A")
	require.NoError(t, err)
	defer detailA.Close()
	detailB, err := c.OpenDetail(ctx, "B")
	require.NoError(t, err)
	defer detailB.Close()

	release := fb.HoldFor(fakebackend.RouteListReviews, "A")
	t.Cleanup(release)
	fb.AddReview(fakebackend.Review{MeetupID: "A", UserID: "u2", Rating: 3})
	fb.AddReview(fakebackend.Review{MeetupID: "B", UserID: "u2", Rating: 5})
	before := fb.Calls(fakebackend.RouteListReviews)

	c.Bus().Publish(Event{Kind: ReviewAdded, MeetupID: "A"})
	c.Bus().Publish(Event{Kind: ReviewAdded, MeetupID: "B"})

	assert.Eventually(t, func() bool { return detailB.ReviewCountText() == "1 review" }, 2*time.Second, 10*time.Millisecond,
		"detail B refetches while detail A's request hangs")
	assert.Equal(t, "0 reviews", detailA.ReviewCountText())
	assert.Eventually(t, func() bool { return fb.Calls(fakebackend.RouteListReviews) == before+2 }, 2*time.Second, 10*time.Millisecond)

	release()
	assert.Eventually(t, func() bool { return detailA.ReviewCountText() == "1 review" }, 2*time.Second, 10*time.Millisecond)
}

func TestMeetupDetail_DebounceCollapsesBurst(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb, WithRefreshDebounce(50*time.Millisecond))
	ctx := context.Background()

	d, err := c.OpenDetail(ctx, "A")
	require.NoError(t, err)
	defer d.Close()
	agg := c.NewReviews()
	defer agg.Close()
	_, err = agg.FetchFor(ctx, "A")
	require.NoError(t, err)
	fb.AddReview(fakebackend.Review{MeetupID: "A", UserID: "u2", Rating: 4})
	before := fb.Calls(fakebackend.RouteListReviews)

	for i := 0; i < 5; i++ {
		c.Bus().Publish(Event{Kind: ReviewAdded, MeetupID: "A"})
	}
	flush(t, c)
	assert.Eventually(t, func() bool { return d.ReviewCountText() == "1 review" && len(agg.For("A")) == 1 },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before+2, fb.Calls(fakebackend.RouteListReviews), "one refetch per view for the whole burst")
}

func TestClient_CloseAbortsHungRefetch(t *testing.T) {
	fb := newBackend(t)
	c := newClient(t, fb)
	d, err := c.OpenDetail(context.Background(), "A")
	require.NoError(t, err)
	defer d.Close()

	release := fb.HoldFor(fakebackend.RouteListReviews, "A")
	defer release()
	before := fb.Calls(fakebackend.RouteListReviews)
	c.Bus().Publish(Event{Kind: ReviewAdded, MeetupID: "A"})
	require.Eventually(t, func() bool { return fb.Calls(fakebackend.RouteListReviews) == before+1 }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close waited for a hung refetch")
	}
}

func TestParticipantsTextAndCategoryLabel(t *testing.T) {
	assert.Equal(t, "0 / ?", ParticipantsText(Meetup{}))
	assert.Equal(t, "2 / 5", ParticipantsText(Meetup{MaxParticipants: 5, Participants: []string{"a", "b"}}))
	assert.Equal(t, "Tech, Art", CategoryLabel(Meetup{Categories: []string{"Tech", "Art"}}))
	assert.Equal(t, "", CategoryLabel(Meetup{}))
}
