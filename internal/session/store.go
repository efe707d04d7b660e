package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists active sessions keyed by token hash. Redis backs it in
// shared deployments; the in-memory store is the single-process default.
type Store interface {
	Save(ctx context.Context, tokenHash string, user User, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (User, error)
	Revoke(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
	Close() error
}

type memoryEntry struct {
	user      User
	expiresAt time.Time
}

// MemoryStore keeps sessions in a map with lazy expiry.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Save(_ context.Context, tokenHash string, user User, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenHash] = memoryEntry{user: user, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, tokenHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[tokenHash]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(m.sessions, tokenHash)
		return User{}, fmt.Errorf("session not found or expired")
	}
	return entry.user, nil
}

func (m *MemoryStore) Revoke(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
