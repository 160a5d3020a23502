package types

import "time"

// ------------------------------
// Request Types
// ------------------------------

// CreateMeetupRequest holds the fields of a new meetup. The backend assigns
// the identifier.
type CreateMeetupRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Host            string    `json:"host"`
	MaxParticipants int       `json:"maxParticipants"`
	Categories      []string  `json:"categories"`
}

// CreateReviewRequest holds a rating for a past meetup.
type CreateReviewRequest struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginRequest holds credentials for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest holds the fields for POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
