package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/storage"
	"go.uber.org/zap"
)

// KnowledgeStore is the ordered, append-only collection of indexed chunks.
// Every mutation is persisted as a full snapshot before it becomes visible.
type KnowledgeStore struct {
	mu      sync.RWMutex
	backend storage.Backend
	key     string
	chunks  []domain.Chunk
}

// OpenKnowledgeStore loads the snapshot stored under key. A missing or
// unreadable snapshot yields an empty store; backend failures are returned.
func OpenKnowledgeStore(ctx context.Context, backend storage.Backend, key string, log *zap.Logger) (*KnowledgeStore, error) {
	if key == "" {
		key = DefaultKnowledgeKey
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &KnowledgeStore{backend: backend, key: key, chunks: []domain.Chunk{}}

	data, err := backend.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("knowledge store: no snapshot, starting empty", zap.String("key", key))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge snapshot: %w", err)
	}

	var chunks []domain.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		log.Warn("knowledge store: unreadable snapshot, starting empty", zap.String("key", key), zap.Error(err))
		return s, nil
	}
	if err := checkDimensions(chunks); err != nil {
		log.Warn("knowledge store: inconsistent snapshot, starting empty", zap.String("key", key), zap.Error(err))
		return s, nil
	}
	if chunks != nil {
		s.chunks = chunks
	}

	log.Info("knowledge store: loaded", zap.String("key", key), zap.Int("chunks", len(s.chunks)))
	return s, nil
}

func checkDimensions(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	dim := chunks[0].Dimension()
	for i, c := range chunks {
		if c.Dimension() != dim {
			return fmt.Errorf("chunk %d has dimension %d, expected %d", i, c.Dimension(), dim)
		}
	}
	return nil
}

// Append adds chunks in order and persists the store. On any failure the
// store is left unchanged.
func (s *KnowledgeStore) Append(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := checkDimensions(chunks); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrDimensionMismatch.Message, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) > 0 && s.chunks[0].Dimension() != chunks[0].Dimension() {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("store has dimension %d, new chunks have %d", s.chunks[0].Dimension(), chunks[0].Dimension()))
	}

	next := make([]domain.Chunk, 0, len(s.chunks)+len(chunks))
	next = append(next, s.chunks...)
	for _, c := range chunks {
		next = append(next, c.Clone())
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.chunks = next
	return nil
}

// Reset removes every chunk.
func (s *KnowledgeStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := []domain.Chunk{}
	if err := s.persist(ctx, empty); err != nil {
		return err
	}
	s.chunks = empty
	return nil
}

func (s *KnowledgeStore) persist(ctx context.Context, chunks []domain.Chunk) error {
	data, err := encodeSnapshot(chunks)
	if err != nil {
		return domain.NewInternalError("failed to persist knowledge store", err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return domain.NewInternalError("failed to persist knowledge store", err)
	}
	return nil
}

// All returns the chunks in insertion order. Appends never modify the
// returned slice, so it can be scanned without holding the lock.
func (s *KnowledgeStore) All() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[:len(s.chunks):len(s.chunks)]
}

// Len returns the number of stored chunks.
func (s *KnowledgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Dimension returns the embedding dimension shared by all chunks, or 0 when empty.
func (s *KnowledgeStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chunks) == 0 {
		return 0
	}
	return s.chunks[0].Dimension()
}

// Sources lists distinct chunk sources in first-seen order.
func (s *KnowledgeStore) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	sources := []string{}
	for _, c := range s.chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	return sources
}
