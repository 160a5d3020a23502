package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetupz/meetupz/client/internal/types"
)

var stockholm = time.FixedZone("CET", 3600)

func sample() []types.Meetup {
	return []types.Meetup{
		{ID: "A", Title: "Go meetup", Categories: []string{"Tech"}, Location: "Stockholm",
			Date: time.Date(2024, 11, 2, 18, 0, 0, 0, stockholm)},
		{ID: "B", Title: "Morning run", Description: "5k by the river", Categories: []string{"Sport"}, Location: "Uppsala",
			Date: time.Date(2024, 11, 3, 9, 0, 0, 0, stockholm)},
		{ID: "C", Title: "Pottery", Categories: []string{"Art", "Tech"}, Location: "Stockholm",
			Date: time.Date(2024, 11, 5, 17, 0, 0, 0, stockholm)},
	}
}

func ids(ms []types.Meetup) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestApply_EndToEndScenario(t *testing.T) {
	t.Parallel()
	src := sample()[:2]

	assert.Equal(t, []string{"A"}, ids(Apply(src, Criteria{Category: "Tech"})))
	assert.Empty(t, Apply(src, Criteria{Category: "Tech", Location: "Uppsala"}))
	assert.Equal(t, []string{"B"}, ids(Apply(src, Criteria{Category: AllCategories, Location: "Uppsala"})))
}

func TestApply_SentinelReturnsEverything(t *testing.T) {
	t.Parallel()
	src := sample()
	for _, sentinel := range []string{"", "All", "all", "Alla", "  Alla "} {
		assert.Equal(t, src, Apply(src, Criteria{Category: sentinel}), "sentinel %q", sentinel)
	}
}

func TestApply_SubsetAndIdempotent(t *testing.T) {
	t.Parallel()
	src := sample()
	criteria := []Criteria{
		{},
		{Category: "Tech"},
		{Query: "RIVER"},
		{Location: "Stockholm", Category: "Art"},
		{Date: Day{2024, time.November, 5}, Loc: stockholm},
		{Category: "Nope"},
	}
	for _, c := range criteria {
		once := Apply(src, c)
		for _, m := range once {
			assert.Contains(t, ids(src), m.ID)
		}
		assert.Equal(t, once, Apply(once, c))
	}
}

func TestApply_PreservesSourceOrder(t *testing.T) {
	t.Parallel()
	src := sample()
	assert.Equal(t, []string{"A", "C"}, ids(Apply(src, Criteria{Category: "Tech"})))
}

func TestApply_QueryMatchesTitleDescriptionLocation(t *testing.T) {
	t.Parallel()
	src := sample()
	assert.Equal(t, []string{"A"}, ids(Apply(src, Criteria{Query: "  go "})))
	assert.Equal(t, []string{"B"}, ids(Apply(src, Criteria{Query: "River"})))
	assert.Equal(t, []string{"B"}, ids(Apply(src, Criteria{Query: "upps"})))
}

func TestApply_LocationIsExact(t *testing.T) {
	t.Parallel()
	src := sample()
	assert.Empty(t, Apply(src, Criteria{Location: "stockholm"}))
	assert.Len(t, Apply(src, Criteria{Location: "all"}), 3)
}

func TestApply_DateIgnoresTimeOfDay(t *testing.T) {
	t.Parallel()
	day, err := ParseDay("2024-11-02")
	require.NoError(t, err)

	late := types.Meetup{ID: "late", Date: types.ParseInstant("2024-11-02T23:30", stockholm)}
	early := types.Meetup{ID: "early", Date: types.ParseInstant("2024-11-03T00:30", stockholm)}
	// Same instant as "late" but carried in UTC.
	lateUTC := types.Meetup{ID: "lateUTC", Date: late.Date.UTC()}
	undated := types.Meetup{ID: "undated"}

	got := Apply([]types.Meetup{late, early, lateUTC, undated}, Criteria{Date: day, Loc: stockholm})
	assert.Equal(t, []string{"late", "lateUTC"}, ids(got))
}

func TestParseDay(t *testing.T) {
	t.Parallel()
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Day{2024, time.February, 29}, d)
	assert.Equal(t, "2024-02-29", d.String())

	zero, err := ParseDay(" ")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseDay("02/11/2024")
	assert.Error(t, err)
}

func TestUpcoming_GraceWindow(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 11, 2, 12, 0, 0, 0, time.UTC)
	src := []types.Meetup{
		{ID: "started-30m-ago", Date: now.Add(-30 * time.Minute)},
		{ID: "exactly-at-cutoff", Date: now.Add(-time.Hour)},
		{ID: "started-2h-ago", Date: now.Add(-2 * time.Hour)},
		{ID: "tomorrow", Date: now.Add(24 * time.Hour)},
		{ID: "undated"},
	}
	got := Upcoming(src, now, time.Hour)
	assert.Equal(t, []string{"started-30m-ago", "exactly-at-cutoff", "tomorrow"}, ids(got))
}

func TestLocations_FirstSeenOrder(t *testing.T) {
	t.Parallel()
	src := append(sample(), types.Meetup{ID: "D", Location: " "}, types.Meetup{ID: "E", Location: "Malmö"})
	assert.Equal(t, []string{"Stockholm", "Uppsala", "Malmö"}, Locations(src))
	assert.Equal(t, []string{}, Locations(nil))
}
