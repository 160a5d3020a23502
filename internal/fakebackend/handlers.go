package fakebackend

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// render converts m to its wire form under the current shape. Callers
// hold s.mu.
func (s *Server) render(m *Meetup) map[string]any {
	out := map[string]any{
		"_id":         m.ID,
		"title":       m.Title,
		"description": m.Description,
		"location":    m.Location,
		"host":        m.Host,
	}
	switch {
	case m.Date.IsZero():
	case s.shape.NaiveDates:
		out["date"] = m.Date.Format("2006-01-02T15:04")
	default:
		out["date"] = m.Date.UTC().Format(time.RFC3339)
	}
	if m.MaxParticipants > 0 {
		out["maxParticipants"] = m.MaxParticipants
	}
	if s.shape.SingleCategory {
		if len(m.Categories) > 0 {
			out["category"] = m.Categories[0]
		}
	} else {
		cats := m.Categories
		if cats == nil {
			cats = []string{}
		}
		out["categories"] = cats
	}
	parts := make([]any, 0, len(m.Participants))
	for _, id := range m.Participants {
		if !s.shape.ParticipantObjects {
			parts = append(parts, id)
			continue
		}
		obj := map[string]any{"_id": id}
		if u := s.userByID(id); u != nil {
			obj["name"], obj["email"] = u.Name, u.Email
		}
		parts = append(parts, obj)
	}
	out["participants"] = parts
	return out
}

func (s *Server) renderReview(r Review) map[string]any {
	out := map[string]any{
		"_id":       r.ID,
		"meetupId":  r.MeetupID,
		"rating":    r.Rating,
		"comment":   r.Comment,
		"createdAt": r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u := s.userByID(r.UserID); u != nil {
		out["user"] = map[string]any{"_id": u.ID, "name": u.Name, "email": u.Email}
	}
	return out
}

func (s *Server) handleListMeetups(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.meetups))
	for _, m := range s.meetups {
		out = append(out, s.render(m))
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMeetup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(mux.Vars(r)["id"])
	if m == nil {
		respondError(w, http.StatusNotFound, "Meetup not found")
		return
	}
	respondJSON(w, http.StatusOK, s.render(m))
}

type createMeetupBody struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Host            string    `json:"host"`
	MaxParticipants int       `json:"maxParticipants"`
	Categories      []string  `json:"categories"`
}

func (s *Server) handleCreateMeetup(w http.ResponseWriter, r *http.Request) {
	if s.authUser(w, r) == "" {
		return
	}
	var body createMeetupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	m := &Meetup{
		ID:              uuid.NewString(),
		Title:           body.Title,
		Description:     body.Description,
		Date:            body.Date,
		Location:        body.Location,
		Host:            body.Host,
		Categories:      body.Categories,
		MaxParticipants: body.MaxParticipants,
	}
	s.mu.Lock()
	s.meetups = append(s.meetups, m)
	out := s.render(m)
	s.mu.Unlock()
	respondJSON(w, http.StatusCreated, out)
}

func (s *Server) handleDeleteMeetup(w http.ResponseWriter, r *http.Request) {
	if s.authUser(w, r) == "" {
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.meetups {
		if m.ID == id {
			s.meetups = append(s.meetups[:i], s.meetups[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	respondError(w, http.StatusNotFound, "Meetup not found")
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	uid := s.authUser(w, r)
	if uid == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(mux.Vars(r)["id"])
	if m == nil {
		respondError(w, http.StatusNotFound, "Meetup not found")
		return
	}
	for _, p := range m.Participants {
		if p == uid {
			respondJSON(w, http.StatusOK, map[string]string{"message": "Already registered"})
			return
		}
	}
	if m.MaxParticipants > 0 && len(m.Participants) >= m.MaxParticipants {
		respondError(w, http.StatusBadRequest, "Meetup is full")
		return
	}
	m.Participants = append(m.Participants, uid)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Registered"})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	uid := s.authUser(w, r)
	if uid == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(mux.Vars(r)["id"])
	if m == nil {
		respondError(w, http.StatusNotFound, "Meetup not found")
		return
	}
	kept := m.Participants[:0]
	for _, p := range m.Participants {
		if p != uid {
			kept = append(kept, p)
		}
	}
	m.Participants = kept
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	out := []map[string]any{}
	for _, rv := range s.reviews {
		if rv.MeetupID == id {
			out = append(out, s.renderReview(rv))
		}
	}
	envelope := s.shape.ReviewEnvelope
	s.mu.Unlock()
	if envelope {
		respondJSON(w, http.StatusOK, map[string]any{"reviews": out, "count": len(out)})
		return
	}
	respondJSON(w, http.StatusOK, out)
}

type createReviewBody struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	uid := s.authUser(w, r)
	if uid == "" {
		return
	}
	var body createReviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		respondError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(id) == nil {
		respondError(w, http.StatusNotFound, "Meetup not found")
		return
	}
	if body.CreatedAt.IsZero() {
		body.CreatedAt = time.Now()
	}
	rv := Review{ID: uuid.NewString(), MeetupID: id, UserID: uid, Rating: body.Rating, Comment: body.Comment, CreatedAt: body.CreatedAt}
	s.reviews = append(s.reviews, rv)
	respondJSON(w, http.StatusCreated, map[string]any{"review": s.renderReview(rv)})
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(body.Email)]
	if !ok || u.Password != body.Password {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	tok := "tok-" + u.ID
	s.tokens[tok] = u.ID
	respondJSON(w, http.StatusOK, map[string]any{
		"token": tok,
		"user":  map[string]string{"_id": u.ID, "name": u.Name, "email": u.Email},
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(body.Email)]; exists {
		respondError(w, http.StatusConflict, "User already exists")
		return
	}
	u := &User{ID: uuid.NewString(), Name: body.Name, Email: body.Email, Password: body.Password}
	s.users[strings.ToLower(u.Email)] = u
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created",
		"user":    map[string]string{"_id": u.ID, "name": u.Name, "email": u.Email},
	})
}
