package client

import (
	"context"
	"strings"
	"time"
)

// pastSlack keeps a meetup that just started out of the past list.
const pastSlack = 5 * time.Minute

// Profile splits a collection into the session user's three lists.
type Profile struct {
	Created []Meetup // hosted by the user
	Joined  []Meetup // upcoming, user participates
	Past    []Meetup // over, user participated or hosted
}

// BuildProfile derives the profile lists for user at now. Each list keeps
// the order of meetups.
func BuildProfile(meetups []Meetup, user User, now time.Time) Profile {
	p := Profile{Created: []Meetup{}, Joined: []Meetup{}, Past: []Meetup{}}
	key := user.Key()
	if key == "" {
		return p
	}
	for _, m := range meetups {
		hosted := IsHost(m, user)
		joined := IsRegistered(m, key)
		if hosted {
			p.Created = append(p.Created, m)
		}
		if joined && m.Date.After(now) {
			p.Joined = append(p.Joined, m)
		}
		if !m.Date.IsZero() && m.Date.Before(now.Add(-pastSlack)) && (joined || hosted) {
			p.Past = append(p.Past, m)
		}
	}
	return p
}

// IsHost reports whether m's host names user by email or display name.
func IsHost(m Meetup, user User) bool {
	host := strings.TrimSpace(m.Host)
	if host == "" {
		return false
	}
	email, name := strings.TrimSpace(user.Email), strings.TrimSpace(user.Name)
	return (email != "" && strings.EqualFold(host, email)) || (name != "" && host == name)
}

// ProfileView combines a directory and a review aggregate for the session
// user. Both halves refresh themselves from the bus.
type ProfileView struct {
	c       *Client
	dir     *Directory
	reviews *Reviews
}

// NewProfileView creates the view; call Load to populate it.
func (c *Client) NewProfileView() *ProfileView {
	return &ProfileView{c: c, dir: c.NewDirectory(), reviews: c.NewReviews()}
}

// Load fetches the collection, then the reviews of every past meetup.
func (v *ProfileView) Load(ctx context.Context) error {
	if err := v.dir.Load(ctx); err != nil {
		return err
	}
	past := v.Profile().Past
	ids := make([]string, len(past))
	for i, m := range past {
		ids[i] = m.ID
	}
	v.reviews.FetchForMany(ctx, ids)
	return nil
}

// Profile derives the lists from the current collection.
func (v *ProfileView) Profile() Profile {
	user, _ := v.c.session.User()
	return BuildProfile(v.dir.Meetups(), user, v.c.now())
}

// Directory exposes the underlying collection.
func (v *ProfileView) Directory() *Directory { return v.dir }

// Reviews exposes the review aggregate for past meetups.
func (v *ProfileView) Reviews() *Reviews { return v.reviews }

// Close closes both halves.
func (v *ProfileView) Close() error {
	_ = v.reviews.Close()
	return v.dir.Close()
}
