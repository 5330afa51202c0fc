// Package draft persists autosave snapshots of in-progress form data behind
// a minimal key-value interface. Backends are pluggable; the session layer
// supplies debouncing so a burst of edits coalesces into one write of the
// most recent state.
package draft

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no snapshot exists for a key. Callers
// treat it (and any other read failure) as "no draft available".
var ErrNotFound = errors.New("draft: not found")

// Key identifies a snapshot: one draft per (schema slug, acting user) pair.
type Key struct {
	Slug   string
	UserID string
}

// String renders the storage key.
func (k Key) String() string {
	return k.Slug + "/" + k.UserID
}

// Snapshot is the persisted working data of a session.
type Snapshot map[string]any

// Store is the minimal snapshot persistence contract.
type Store interface {
	Get(ctx context.Context, key Key) (Snapshot, error)
	Put(ctx context.Context, key Key, snap Snapshot) error
	Delete(ctx context.Context, key Key) error
}

// MemoryStore keeps snapshots in process memory. Suitable for tests and
// single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, found := m.snaps[key.String()]
	if !found {
		return nil, ErrNotFound
	}
	out := make(Snapshot, len(snap))
	for k, v := range snap {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, key Key, snap Snapshot) error {
	clone := make(Snapshot, len(snap))
	for k, v := range snap {
		clone[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[key.String()] = clone
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, key.String())
	return nil
}
