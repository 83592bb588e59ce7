// Package store provides digest store implementations for the council
// router. Memory is the single-process default; the sqlite subpackage
// (a separate module) persists digests across restarts.
package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	text      string
	expiresAt time.Time
}

// Memory is an in-memory digest store with TTL expiry. Same-session
// writes serialize under the mutex; last writer wins.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	now func() time.Time
}

// NewMemory creates a memory store whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WriteDigest records the digest for a session.
func (m *Memory) WriteDigest(_ context.Context, sessionID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sessionID] = entry{text: text, expiresAt: m.now().Add(m.ttl)}
	return nil
}

// ReadDigest returns the live digest for a session. Expired entries are
// dropped lazily on read.
func (m *Memory) ReadDigest(_ context.Context, sessionID string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[sessionID]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock: a concurrent write may have
		// refreshed the entry.
		if cur, ok := m.entries[sessionID]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, sessionID)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return e.text, true, nil
}

// Len reports the number of live and expired entries currently held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
