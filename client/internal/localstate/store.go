// Package localstate persists client-local key/value state (session token,
// session user, last meetup snapshot) in a SQLite file so it survives
// restarts.
package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Well-known keys.
const (
	KeyToken        = "token"
	KeyUser         = "user"
	KeyMeetupsCache = "meetups-cache"
)

// Store is a string key/value store backed by SQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open database. The schema must already exist; see
// EnsureSchema.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens the store under DataDir(dir), creating the file and schema on
// first use.
func Open(ctx context.Context, dir string) (*Store, error) {
	path, err := DBPath(dir)
	if err != nil {
		return nil, fmt.Errorf("localstate: resolve path: %w", err)
	}
	db, err := OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("localstate: open %s: %w", path, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstate: schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("localstate: opened")
	return NewStore(db), nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT Value FROM KV WHERE Key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstate: get %q: %w", key, err)
	}
	return v, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO KV (Key, Value, UpdateTime) VALUES (?, ?, ?)
         ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value, UpdateTime = excluded.UpdateTime`,
		key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("localstate: put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM KV WHERE Key = ?`, key); err != nil {
		return fmt.Errorf("localstate: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
