// Package storage persists named snapshots of the knowledge and chat stores.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Load when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// Backend stores whole snapshots by key. Save replaces the previous snapshot
// atomically: readers see either the old bytes or the new bytes.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// MemoryBackend keeps snapshots in process memory. Used by tests and by
// deployments that do not need persistence.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	saves int
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *MemoryBackend) Save(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	b.data[key] = stored
	b.saves++
	return nil
}

// Saves returns how many times Save has succeeded.
func (b *MemoryBackend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

func (b *MemoryBackend) Close() error { return nil }
