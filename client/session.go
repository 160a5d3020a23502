package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
	"github.com/meetupz/meetupz/client/internal/localstate"
)

// KV is client-local key/value storage. *LocalStore implements it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is a KV kept in process memory.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV { return &MemoryKV{m: make(map[string]string)} }

func (k *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *MemoryKV) Put(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *MemoryKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
	return nil
}

// Session is the identity context: the bearer token and the user it
// belongs to. It begins on login, ends on logout, and is persisted under
// the "token" and "user" keys so Restore can pick it up after a restart.
type Session struct {
	kv KV

	mu    sync.RWMutex
	token string
	user  *User
}

// NewSession returns an empty session persisting to kv.
func NewSession(kv KV) *Session {
	if kv == nil {
		kv = NewMemoryKV()
	}
	return &Session{kv: kv}
}

// Restore loads a persisted session. A missing token leaves the session
// empty; an unreadable stored user is discarded.
func (s *Session) Restore(ctx context.Context) error {
	tok, ok, err := s.kv.Get(ctx, localstate.KeyToken)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(tok) == "" {
		s.set("", nil)
		return nil
	}
	var user *User
	if raw, ok, err := s.kv.Get(ctx, localstate.KeyUser); err != nil {
		return err
	} else if ok {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			log.Warn().Err(err).Msg("session: discarding unreadable stored user")
		} else {
			user = &u
		}
	}
	s.set(tok, user)
	return nil
}

// Begin starts a session and persists it.
func (s *Session) Begin(ctx context.Context, token string, user User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, localstate.KeyToken, token); err != nil {
		return err
	}
	if err := s.kv.Put(ctx, localstate.KeyUser, string(raw)); err != nil {
		if derr := s.kv.Delete(ctx, localstate.KeyToken); derr != nil {
			log.Warn().Err(derr).Msg("session: could not remove token after failed user write")
		}
		return err
	}
	s.set(token, &user)
	return nil
}

// End clears the session and its persisted keys. Ending an empty session
// is not an error.
func (s *Session) End(ctx context.Context) error {
	s.set("", nil)
	if err := s.kv.Delete(ctx, localstate.KeyToken); err != nil {
		return err
	}
	return s.kv.Delete(ctx, localstate.KeyUser)
}

func (s *Session) set(token string, user *User) {
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
}

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the session user and whether one is known.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Key returns the canonical identity key of the session user, or "".
func (s *Session) Key() string {
	u, ok := s.User()
	if !ok {
		return ""
	}
	return u.Key()
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool { return s.Token() != "" }

// RequireToken returns an Unauthenticated error naming op when no token is
// present.
func (s *Session) RequireToken(op string) error {
	if !s.Authenticated() {
		return sdkerrors.NewUnauthenticated(op)
	}
	return nil
}
