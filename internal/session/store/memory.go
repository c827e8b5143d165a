// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/voxdesk/voxdesk/internal/session"
)

// MemoryStore keeps sessions in-process. Used for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	exp  map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore builds an empty in-memory store with the session TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		exp:  make(map[string]time.Time),
		ttl:  session.TTL,
		now:  time.Now,
	}
}

// Get returns the stored session, treating lapsed TTL as absence.
func (m *MemoryStore) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	raw, ok := m.data[id]
	deadline, hasDeadline := m.exp[id]
	m.mu.RUnlock()

	if !ok || (hasDeadline && m.now().After(deadline)) {
		return nil, ErrNotFound
	}

	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the session and refreshes its TTL.
func (m *MemoryStore) Save(_ context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[s.ConvID] = raw
	m.exp[s.ConvID] = m.now().Add(m.ttl)
	m.mu.Unlock()
	return nil
}

// Delete removes the session if present.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	delete(m.exp, id)
	m.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error { return nil }
