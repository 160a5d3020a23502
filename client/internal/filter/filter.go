// Package filter narrows a meetup collection by the listing criteria.
//
// Everything here is pure: the same collection and criteria always yield the
// same result, the input is never mutated, and results keep the source order.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/meetupz/meetupz/client/internal/types"
)

// AllCategories is the category value that disables category matching.
const AllCategories = "All"

// DefaultCategories are the category choices offered by the create form and
// the listing selector.
var DefaultCategories = []string{"Tech", "Sport", "Art", "Food", "Music", "Business"}

// IsAll reports whether category means "no category filter". The Swedish
// "Alla" is accepted since older clients stored it.
func IsAll(category string) bool {
	c := strings.TrimSpace(category)
	return c == "" || strings.EqualFold(c, AllCategories) || strings.EqualFold(c, "Alla")
}

// Day is a calendar date without a time of day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// IsZero reports whether d is unset.
func (d Day) IsZero() bool { return d == Day{} }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, dd := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: dd}
}

// ParseDay parses YYYY-MM-DD. An empty string yields the zero Day.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DayOf(t, time.UTC), nil
}

// Criteria holds the listing filter. Zero values disable each criterion.
type Criteria struct {
	Category string
	Query    string
	Location string
	Date     Day

	// Loc is the zone in which meetup instants are reduced to calendar
	// days. Nil means time.Local.
	Loc *time.Location
}

// Matches reports whether m passes every set criterion.
func (c Criteria) Matches(m types.Meetup) bool {
	return c.matchCategory(m) && c.matchLocation(m) && c.matchQuery(m) && c.matchDate(m)
}

func (c Criteria) matchCategory(m types.Meetup) bool {
	if IsAll(c.Category) {
		return true
	}
	want := strings.TrimSpace(c.Category)
	for _, cat := range m.Categories {
		if cat == want {
			return true
		}
	}
	return false
}

func (c Criteria) matchLocation(m types.Meetup) bool {
	loc := strings.TrimSpace(c.Location)
	if loc == "" || strings.EqualFold(loc, "all") {
		return true
	}
	return m.Location == loc
}

func (c Criteria) matchQuery(m types.Meetup) bool {
	q := strings.ToLower(strings.TrimSpace(c.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{m.Title, m.Description, m.Location} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (c Criteria) matchDate(m types.Meetup) bool {
	if c.Date.IsZero() {
		return true
	}
	if m.Date.IsZero() {
		return false
	}
	return DayOf(m.Date, c.Loc) == c.Date
}

// Apply returns the meetups of src that satisfy c, in source order. The
// result never aliases src.
func Apply(src []types.Meetup, c Criteria) []types.Meetup {
	out := make([]types.Meetup, 0, len(src))
	for _, m := range src {
		if c.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// Upcoming keeps meetups whose instant is at or after now-grace. Meetups
// without a date are dropped.
func Upcoming(src []types.Meetup, now time.Time, grace time.Duration) []types.Meetup {
	cutoff := now.Add(-grace)
	out := make([]types.Meetup, 0, len(src))
	for _, m := range src {
		if !m.Date.IsZero() && !m.Date.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// Locations returns the distinct non-empty locations of src in first-seen
// order.
func Locations(src []types.Meetup) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range src {
		l := strings.TrimSpace(m.Location)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
