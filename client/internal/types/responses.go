package types

import (
	"bytes"
	"encoding/json"
)

// ------------------------------
// Response Types
// ------------------------------

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SignupResponse is returned by POST /auth/signup. The backend either wraps
// the user or returns it bare; both decode into User.
type SignupResponse struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
}

// UnmarshalJSON accepts {user:{...}} as well as a bare user object.
func (s *SignupResponse) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Message string          `json:"message"`
		User    json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	s.Message = wrapped.Message
	if len(wrapped.User) > 0 && !bytes.Equal(wrapped.User, []byte("null")) {
		return json.Unmarshal(wrapped.User, &s.User)
	}
	return json.Unmarshal(b, &s.User)
}

// ReviewList is the GET /meetups/{id}/reviews payload. The backend returns
// either a bare array or {reviews:[...]}; both decode into the same slice,
// and anything else decodes to an empty list.
type ReviewList []Review

func (l *ReviewList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var arr []Review
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*l = nonNil(arr)
		return nil
	}
	var env struct {
		Reviews []Review `json:"reviews"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*l = nonNil(env.Reviews)
	return nil
}

func nonNil(r []Review) []Review {
	if r == nil {
		return []Review{}
	}
	return r
}

// CreatedReview is the POST /meetups/{id}/reviews payload: {review:{...}}
// or the bare review.
type CreatedReview struct {
	Review Review `json:"review"`
}

func (c *CreatedReview) UnmarshalJSON(b []byte) error {
	var env struct {
		Review json.RawMessage `json:"review"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if len(env.Review) > 0 && !bytes.Equal(env.Review, []byte("null")) {
		return json.Unmarshal(env.Review, &c.Review)
	}
	return json.Unmarshal(b, &c.Review)
}
