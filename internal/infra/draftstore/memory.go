// Package draftstore holds intake sessions between requests. The in-memory
// store is the default; the Redis store lets drafts survive restarts when the
// BFF runs with more than one replica.
package draftstore

import (
	"context"
	"sync"
	"time"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

type memoryEntry struct {
	draft     *domain.NotaDraft
	expiresAt time.Time
}

// Memory is a thread-safe in-memory draft store with TTL expiry.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration
}

// NewMemory creates an in-memory draft store. Drafts expire after ttl of
// inactivity; every Put refreshes the deadline.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
	}
	go m.cleanup()
	return m
}

// Get returns a deep copy of the stored draft, or ErrNotFound when the
// session does not exist or expired.
func (m *Memory) Get(_ context.Context, draftID string) (*domain.NotaDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.items[draftID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, &domain.ErrNotFound{Resource: "draft", ID: draftID}
	}
	return e.draft.Clone(), nil
}

// Put stores a copy of the draft and refreshes its TTL.
func (m *Memory) Put(_ context.Context, draft *domain.NotaDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[draft.DraftID] = memoryEntry{
		draft:     draft.Clone(),
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

// Delete discards a session. Deleting a missing session is not an error.
func (m *Memory) Delete(_ context.Context, draftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, draftID)
	return nil
}

// cleanup periodically removes expired sessions.
func (m *Memory) cleanup() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for k, v := range m.items {
			if now.After(v.expiresAt) {
				delete(m.items, k)
			}
		}
		m.mu.Unlock()
	}
}
