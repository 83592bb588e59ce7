// Package sqlite provides a persistent DigestStore backed by SQLite,
// for deployments that must keep session context across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS digests (
	session_id TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_digests_expires ON digests(expires_at);
`

// Store is a SQLite-backed digest store with TTL expiry. Writes upsert
// per session (last writer wins); expired rows are dropped lazily.
type Store struct {
	db  *sql.DB
	ttl time.Duration

	now func() time.Time
}

// Open creates or opens the store at path. Use ":memory:" for an
// ephemeral database.
func Open(path string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteDigest records the digest for a session.
func (s *Store) WriteDigest(ctx context.Context, sessionID, text string) error {
	expires := s.now().Add(s.ttl).Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO digests (session_id, text, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET text=excluded.text, expires_at=excluded.expires_at`,
		sessionID, text, expires)
	if err != nil {
		return fmt.Errorf("sqlite: write digest: %w", err)
	}
	return nil
}

// ReadDigest returns the live digest for a session. Expired rows are
// deleted on read.
func (s *Store) ReadDigest(ctx context.Context, sessionID string) (string, bool, error) {
	var text string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT text, expires_at FROM digests WHERE session_id = ?`, sessionID).
		Scan(&text, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: read digest: %w", err)
	}

	if s.now().Unix() > expiresAt {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM digests WHERE session_id = ? AND expires_at = ?`,
			sessionID, expiresAt)
		return "", false, nil
	}
	return text, true, nil
}

// Sweep removes all expired rows. Intended for a periodic maintenance
// call in long-lived deployments.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM digests WHERE expires_at < ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite: sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
