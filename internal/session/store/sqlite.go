// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxdesk/voxdesk/internal/session"
)

// SqliteStore persists sessions in a single SQLite table with an expiry
// column; reads treat lapsed rows as absent and a sweep prunes them.
type SqliteStore struct {
	db  *sql.DB
	ttl time.Duration
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	conv_id       TEXT PRIMARY KEY,
	payload       TEXT NOT NULL,
	expires_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at_ms);
`

// NewSqliteStore opens (or creates) the database at path.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session store: open sqlite: %w", err)
	}
	// SQLite handles one writer at a time; the engine serializes per
	// conversation already, so a small pool suffices.
	db.SetMaxOpenConns(4)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session store: migrate: %w", err)
	}
	return &SqliteStore{db: db, ttl: session.TTL}, nil
}

// Get loads a session, treating lapsed TTL as absence.
func (s *SqliteStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at_ms FROM sessions WHERE conv_id = ?`, id,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store: sqlite get: %w", err)
	}
	if time.Now().UnixMilli() > expiresAt {
		_ = s.deleteRow(ctx, id)
		return nil, ErrNotFound
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("session store: decode session: %w", err)
	}
	return &sess, nil
}

// Save upserts the session and refreshes its expiry.
func (s *SqliteStore) Save(ctx context.Context, sess *session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session store: encode session: %w", err)
	}
	expires := time.Now().Add(s.ttl).UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (conv_id, payload, expires_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(conv_id) DO UPDATE SET payload = excluded.payload, expires_at_ms = excluded.expires_at_ms`,
		sess.ConvID, string(raw), expires)
	if err != nil {
		return fmt.Errorf("session store: sqlite upsert: %w", err)
	}
	return nil
}

// Delete removes the session row.
func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	return s.deleteRow(ctx, id)
}

func (s *SqliteStore) deleteRow(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE conv_id = ?`, id); err != nil {
		return fmt.Errorf("session store: sqlite delete: %w", err)
	}
	return nil
}

// SweepExpired prunes lapsed rows; callers run it periodically.
func (s *SqliteStore) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at_ms < ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("session store: sweep: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database handle.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}
