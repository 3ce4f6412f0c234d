// Package transcript persists the ordered message log of a chat session,
// scoped by (userId, sessionId). Persistence is a convenience, not
// authoritative state: saves are best-effort and loads are validated before
// they touch the in-memory transcript.
package transcript

import (
	"context"
	"sync"
)

// Capability is the volatile key-value surface the store writes through.
// Adapters exist for in-process memory, redis, and sqlite.
type Capability interface {
	// Get returns the stored value and whether the key existed.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error
}

// MemoryCapability is the in-process adapter. It is the default and matches
// the volatility contract exactly: state survives as long as the process.
type MemoryCapability struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryCapability creates an empty in-memory capability.
func NewMemoryCapability() *MemoryCapability {
	return &MemoryCapability{values: make(map[string]string)}
}

func (m *MemoryCapability) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryCapability) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryCapability) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

var _ Capability = (*MemoryCapability)(nil)
