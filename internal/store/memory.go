package store

import (
	"context"
	"sync"
)

// MemorySnapshots is the in-process snapshot port used by tests.
type MemorySnapshots struct {
	mu        sync.Mutex
	snapshots map[Kind][]byte
	saveErr   error
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{snapshots: make(map[Kind][]byte)}
}

// Prime seeds a snapshot directly, bypassing Save. Tests use it to simulate
// pre-existing (or corrupt) on-disk state.
func (m *MemorySnapshots) Prime(kind Kind, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[kind] = payload
}

// FailSaves makes every subsequent Save return err.
func (m *MemorySnapshots) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *MemorySnapshots) Load(_ context.Context, kind Kind) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[kind], nil
}

func (m *MemorySnapshots) Save(_ context.Context, kind Kind, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	m.snapshots[kind] = copied
	return nil
}
