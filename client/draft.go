package client

import (
	"strings"
	"time"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
	"github.com/meetupz/meetupz/client/internal/filter"
	"github.com/meetupz/meetupz/client/internal/types"
)

// Capacity bounds accepted by the create form.
const (
	MinAttendees = 1
	MaxAttendees = 500
)

// UnknownHost is recorded when the session user has neither name nor email.
const UnknownHost = "Unknown host"

// MeetupDraft is the create form.
type MeetupDraft struct {
	Title        string
	Location     string
	Day          Day
	Time         string // "HH:MM"
	Categories   []string
	MaxAttendees int
	Info         string
}

// Build validates the draft and turns it into a request hosted by user.
// Day and Time are read in loc and must not be earlier than now.
func (d MeetupDraft) Build(user User, loc *time.Location, now time.Time) (CreateMeetupRequest, error) {
	const op = "create meetup"
	if loc == nil {
		loc = time.Local
	}
	invalid := func(field, msg string) (CreateMeetupRequest, error) {
		return CreateMeetupRequest{}, sdkerrors.NewValidationError(op, field, msg)
	}

	title := strings.TrimSpace(d.Title)
	location := strings.TrimSpace(d.Location)
	info := strings.TrimSpace(d.Info)
	switch {
	case title == "":
		return invalid("title", "title is required")
	case location == "":
		return invalid("location", "location is required")
	case info == "":
		return invalid("info", "description is required")
	case d.Day.IsZero():
		return invalid("date", "date is required")
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(d.Time))
	if err != nil {
		return invalid("time", "time must be HH:MM")
	}
	cats := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		if c = strings.TrimSpace(c); c != "" && !filter.IsAll(c) {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		return invalid("categories", "choose at least one category")
	}
	if d.MaxAttendees < MinAttendees || d.MaxAttendees > MaxAttendees {
		return invalid("maxAttendees", "max attendees must be between 1 and 500")
	}

	when := time.Date(d.Day.Year, d.Day.Month, d.Day.Day, clock.Hour(), clock.Minute(), 0, 0, loc)
	if when.Year() != d.Day.Year || when.Month() != d.Day.Month || when.Day() != d.Day.Day {
		return invalid("date", "invalid date")
	}
	if when.Before(now) {
		return invalid("date", "date must not be in the past")
	}

	return types.CreateMeetupRequest{
		Title:           title,
		Description:     info,
		Date:            when,
		Location:        location,
		Host:            hostName(user),
		MaxParticipants: d.MaxAttendees,
		Categories:      cats,
	}, nil
}

func hostName(u User) string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if e := strings.TrimSpace(u.Email); e != "" {
		return e
	}
	return UnknownHost
}
