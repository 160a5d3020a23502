// Package fakebackend is an in-memory MeetUpz backend for tests and local
// demos. It speaks the REST contract under /api and can be switched between
// the payload shapes real deployments have produced.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Route names accepted by Fail and Calls.
const (
	RouteListMeetups  = "list-meetups"
	RouteGetMeetup    = "get-meetup"
	RouteCreateMeetup = "create-meetup"
	RouteDeleteMeetup = "delete-meetup"
	RouteJoin         = "join"
	RouteLeave        = "leave"
	RouteListReviews  = "list-reviews"
	RouteCreateReview = "create-review"
	RouteLogin        = "login"
	RouteSignup       = "signup"
)

// Meetup is the stored form of a meetup.
type Meetup struct {
	ID              string
	Title           string
	Description     string
	Date            time.Time
	Location        string
	Host            string
	Categories      []string
	MaxParticipants int
	Participants    []string // user ids
}

// Review is the stored form of a review.
type Review struct {
	ID        string
	MeetupID  string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// User is a registered account.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
}

// Shape selects how payloads are rendered.
type Shape struct {
	// ParticipantObjects renders participants as {_id,name,email} objects
	// instead of raw ids.
	ParticipantObjects bool
	// SingleCategory renders only the first category in a "category" field.
	SingleCategory bool
	// ReviewEnvelope wraps review lists as {reviews:[...]}.
	ReviewEnvelope bool
	// NaiveDates renders meetup dates as wall clock time in the zone they
	// were stored in, without an offset.
	NaiveDates bool
}

type failure struct {
	status   int
	body     string
	meetupID string // empty: every request on the route
}

// Server is the fake backend.
type Server struct {
	srv    *httptest.Server
	router *mux.Router

	mu       sync.Mutex
	shape    Shape
	meetups  []*Meetup
	reviews  []Review
	users    map[string]*User // by email
	tokens   map[string]string
	failures map[string][]failure
	calls    map[string]int
	holds    []hold
}

type hold struct {
	route    string // empty: every route
	meetupID string // empty: every meetup
	gate     chan struct{}
}

// New starts a fake backend. Close it when done.
func New() *Server {
	s := &Server{
		users:    make(map[string]*User),
		tokens:   make(map[string]string),
		failures: make(map[string][]failure),
		calls:    make(map[string]int),
	}
	s.router = s.routes()
	s.srv = httptest.NewServer(s.router)
	return s
}

// URL returns the API base URL, e.g. http://127.0.0.1:1234/api.
func (s *Server) URL() string { return s.srv.URL + "/api" }

// Handler returns the router, for mounting in another server.
func (s *Server) Handler() http.Handler { return s.router }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// SetShape switches payload rendering.
func (s *Server) SetShape(shape Shape) {
	s.mu.Lock()
	s.shape = shape
	s.mu.Unlock()
}

// AddUser registers an account and returns a token for it.
func (s *Server) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[strings.ToLower(u.Email)] = &u
	tok := "tok-" + u.ID
	s.tokens[tok] = u.ID
	return tok
}

// AddMeetup stores m, assigning an id when empty, and returns the id.
func (s *Server) AddMeetup(m Meetup) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	cp := m
	cp.Participants = append([]string(nil), m.Participants...)
	s.meetups = append(s.meetups, &cp)
	return m.ID
}

// AddReview stores r.
func (s *Server) AddReview(r Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.reviews = append(s.reviews, r)
}

// Meetup returns a copy of the stored meetup.
func (s *Server) Meetup(id string) (Meetup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.find(id); m != nil {
		cp := *m
		cp.Participants = append([]string(nil), m.Participants...)
		return cp, true
	}
	return Meetup{}, false
}

// Reviews returns the stored reviews of one meetup.
func (s *Server) Reviews(meetupID string) []Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Review
	for _, r := range s.reviews {
		if r.MeetupID == meetupID {
			out = append(out, r)
		}
	}
	return out
}

// Fail makes every later request on route answer status with body. An
// empty body sends no body at all.
func (s *Server) Fail(route string, status int, body string) {
	s.FailFor(route, "", status, body)
}

// FailFor is Fail restricted to requests naming meetupID.
func (s *Server) FailFor(route, meetupID string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, body: body, meetupID: meetupID})
}

// Heal removes every injected failure.
func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string][]failure)
}

// Calls returns how many requests route has received.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Hold makes requests block until the returned release func is called.
func (s *Server) Hold() (release func()) { return s.HoldFor("", "") }

// HoldFor blocks requests on route for meetupID until release is called.
// An empty route or meetupID matches every route or meetup.
func (s *Server) HoldFor(route, meetupID string) (release func()) {
	h := hold{route: route, meetupID: meetupID, gate: make(chan struct{})}
	s.mu.Lock()
	s.holds = append(s.holds, h)
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			for i, x := range s.holds {
				if x.gate == h.gate {
					s.holds = append(s.holds[:i], s.holds[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
			close(h.gate)
		})
	}
}

func (s *Server) find(id string) *Meetup {
	for _, m := range s.meetups {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Server) userByID(id string) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// ------------------------------
// Routing
// ------------------------------

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/meetups", s.handleListMeetups).Methods(http.MethodGet).Name(RouteListMeetups)
	api.HandleFunc("/meetups", s.handleCreateMeetup).Methods(http.MethodPost).Name(RouteCreateMeetup)
	api.HandleFunc("/meetups/{id}", s.handleGetMeetup).Methods(http.MethodGet).Name(RouteGetMeetup)
	api.HandleFunc("/meetups/{id}", s.handleDeleteMeetup).Methods(http.MethodDelete).Name(RouteDeleteMeetup)
	api.HandleFunc("/meetups/{id}/join", s.handleJoin).Methods(http.MethodPost).Name(RouteJoin)
	api.HandleFunc("/meetups/{id}/join", s.handleLeave).Methods(http.MethodDelete).Name(RouteLeave)
	api.HandleFunc("/meetups/{id}/reviews", s.handleListReviews).Methods(http.MethodGet).Name(RouteListReviews)
	api.HandleFunc("/meetups/{id}/reviews", s.handleCreateReview).Methods(http.MethodPost).Name(RouteCreateReview)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost).Name(RouteSignup)
	api.Use(s.instrument)
	return r
}

// instrument counts calls, honours holds, and serves injected failures.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		id := mux.Vars(r)["id"]

		s.mu.Lock()
		s.calls[name]++
		var gates []chan struct{}
		for _, h := range s.holds {
			if (h.route == "" || h.route == name) && (h.meetupID == "" || h.meetupID == id) {
				gates = append(gates, h.gate)
			}
		}
		var hit *failure
		for _, f := range s.failures[name] {
			if f.meetupID == "" || f.meetupID == id {
				f := f
				hit = &f
				break
			}
		}
		s.mu.Unlock()

		for _, gate := range gates {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if hit != nil {
			w.WriteHeader(hit.status)
			if hit.body != "" {
				_, _ = fmt.Fprint(w, hit.body)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------
// Response helpers
// ------------------------------

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// authUser returns the caller's user id, or "" after writing a 401.
func (s *Server) authUser(w http.ResponseWriter, r *http.Request) string {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	id, ok := s.tokens[tok]
	s.mu.Unlock()
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return ""
	}
	return id
}
