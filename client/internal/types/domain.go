package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/meetupz/meetupz/client/internal/identity"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// User is the session identity. At least one of Name or Email is set.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Key returns the canonical identity key for the user.
func (u User) Key() string { return identity.Key(u.ID, u.Email, u.Name) }

// UnmarshalJSON accepts both "id" and "_id" for the identifier.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID    flexString `json:"id"`
		OID   flexString `json:"_id"`
		Name  string     `json:"name"`
		Email string     `json:"email"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	u.ID = firstNonBlank(string(raw.OID), string(raw.ID))
	u.Name = raw.Name
	u.Email = raw.Email
	return nil
}

// Meetup is a hosted event. Participants holds canonical identity keys;
// entries arriving as embedded user objects are reduced to their key when
// decoded. Categories is never nil after decoding; a single "category"
// field is treated as a one-element set. MaxParticipants of 0 means unset.
type Meetup struct {
	ID              string
	Title           string
	Description     string
	Date            time.Time
	Location        string
	Host            string
	Categories      []string
	MaxParticipants int
	Participants    []string
}

// meetupWire is the JSON shape written by MarshalJSON and the superset
// accepted by UnmarshalJSON.
type meetupWire struct {
	OID             flexString        `json:"_id,omitempty"`
	ID              flexString        `json:"id,omitempty"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Info            string            `json:"info,omitempty"`
	Date            string            `json:"date,omitempty"`
	Location        string            `json:"location"`
	Host            json.RawMessage   `json:"host,omitempty"`
	Categories      json.RawMessage   `json:"categories,omitempty"`
	Category        json.RawMessage   `json:"category,omitempty"`
	MaxParticipants json.RawMessage   `json:"maxParticipants,omitempty"`
	Participants    []participantKey `json:"participants"`
}

// UnmarshalJSON normalizes the several shapes the backend has used. A date
// without an offset is read in time.Local; use DecodeMeetup to pick the zone.
func (m *Meetup) UnmarshalJSON(b []byte) error {
	return m.decode(b, time.Local)
}

// DecodeMeetup decodes one meetup, reading a date without an offset as wall
// clock time in loc.
func DecodeMeetup(b []byte, loc *time.Location) (Meetup, error) {
	var m Meetup
	err := m.decode(b, loc)
	return m, err
}

// DecodeMeetups decodes a JSON array of meetups like DecodeMeetup. A null
// array yields an empty slice.
func DecodeMeetups(b []byte, loc *time.Location) ([]Meetup, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, err
	}
	out := make([]Meetup, 0, len(raws))
	for _, raw := range raws {
		m, err := DecodeMeetup(raw, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (m *Meetup) decode(b []byte, loc *time.Location) error {
	var w meetupWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Meetup{
		ID:          firstNonBlank(string(w.OID), string(w.ID)),
		Title:       w.Title,
		Description: firstNonBlank(w.Description, w.Info),
		Date:        ParseInstant(w.Date, loc),
		Location:    w.Location,
		Host:        decodeHost(w.Host),
	}
	m.Categories = decodeCategories(w.Categories)
	if len(m.Categories) == 0 {
		m.Categories = decodeCategories(w.Category)
	}
	m.MaxParticipants = decodePositiveInt(w.MaxParticipants)
	m.Participants = make([]string, 0, len(w.Participants))
	seen := make(map[string]struct{}, len(w.Participants))
	for _, p := range w.Participants {
		k := string(p)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		m.Participants = append(m.Participants, k)
	}
	return nil
}

// MarshalJSON writes the canonical shape.
func (m Meetup) MarshalJSON() ([]byte, error) {
	host, _ := json.Marshal(m.Host)
	cats, _ := json.Marshal(m.categoriesOrEmpty())
	w := meetupWire{
		OID:          flexString(m.ID),
		Title:        m.Title,
		Description:  m.Description,
		Location:     m.Location,
		Host:         host,
		Categories:   cats,
		Participants: make([]participantKey, len(m.Participants)),
	}
	if !m.Date.IsZero() {
		w.Date = m.Date.UTC().Format(time.RFC3339)
	}
	if m.MaxParticipants > 0 {
		w.MaxParticipants = json.RawMessage(strconv.Itoa(m.MaxParticipants))
	}
	for i, p := range m.Participants {
		w.Participants[i] = participantKey(p)
	}
	return json.Marshal(w)
}

func (m Meetup) categoriesOrEmpty() []string {
	if m.Categories == nil {
		return []string{}
	}
	return m.Categories
}

// Clone returns a deep copy.
func (m Meetup) Clone() Meetup {
	c := m
	c.Categories = append([]string(nil), m.Categories...)
	c.Participants = append([]string(nil), m.Participants...)
	return c
}

// Review is one rating of a meetup. Reviews are immutable once created.
type Review struct {
	ID        string
	MeetupID  string
	Rating    int
	Comment   string
	Author    User
	CreatedAt time.Time
}

type reviewWire struct {
	OID       flexString      `json:"_id,omitempty"`
	ID        flexString      `json:"id,omitempty"`
	MeetupID  participantKey  `json:"meetupId"`
	Meetup    *participantKey `json:"meetup,omitempty"`
	Rating    int             `json:"rating"`
	Comment   string          `json:"comment"`
	User      *User           `json:"user,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts meetupId as a raw id or an embedded meetup object.
func (r *Review) UnmarshalJSON(b []byte) error {
	var w reviewWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Review{
		ID:        firstNonBlank(string(w.OID), string(w.ID)),
		MeetupID:  string(w.MeetupID),
		Rating:    w.Rating,
		Comment:   w.Comment,
		CreatedAt: ParseInstant(w.CreatedAt, time.UTC),
	}
	if r.MeetupID == "" && w.Meetup != nil {
		r.MeetupID = string(*w.Meetup)
	}
	if w.User != nil {
		r.Author = *w.User
	}
	return nil
}

// MarshalJSON writes the canonical shape.
func (r Review) MarshalJSON() ([]byte, error) {
	w := reviewWire{
		OID:      flexString(r.ID),
		MeetupID: participantKey(r.MeetupID),
		Rating:   r.Rating,
		Comment:  r.Comment,
	}
	if r.Author != (User{}) {
		a := r.Author
		w.User = &a
	}
	if !r.CreatedAt.IsZero() {
		w.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// ------------------------------
// Decoding helpers
// ------------------------------

// flexString decodes a JSON string or number into its string form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// participantKey decodes a user reference in any of its stored shapes
// (raw identifier string or number, or an object with _id/id/email/name)
// into its canonical identity key.
type participantKey string

func (p *participantKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			OID   flexString `json:"_id"`
			ID    flexString `json:"id"`
			Email string     `json:"email"`
			Name  string     `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*p = participantKey(identity.Key(firstNonBlank(string(obj.OID), string(obj.ID)), obj.Email, obj.Name))
		return nil
	}
	var f flexString
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*p = participantKey(identity.Normalize(string(f)))
	return nil
}

func (p participantKey) MarshalJSON() ([]byte, error) { return json.Marshal(string(p)) }

func decodeHost(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return firstNonBlank(obj.Name, obj.Email)
	}
	return ""
}

func decodeCategories(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return out
		}
		list = []string{one}
	}
	for _, c := range list {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func decodePositiveInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f flexString
	if err := f.UnmarshalJSON(raw); err != nil {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	if err != nil || n < 1 {
		return 0
	}
	return int(n)
}

// ParseInstant parses the date formats the backend and its forms produce.
// Strings without an offset are read in loc. Unparseable input yields the
// zero time.
func ParseInstant(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
