package localstate

import (
	"context"
	"database/sql"
)

// EnsureSchema creates the key/value table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS KV (
            Key TEXT PRIMARY KEY,
            Value TEXT NOT NULL,
            UpdateTime TIMESTAMP NOT NULL
        );`)
	return err
}
