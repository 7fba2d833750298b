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

// ChatStore keeps every user's chat threads, newest first, and persists the
// whole collection after each mutation. Callers receive copies.
type ChatStore struct {
	mu      sync.Mutex
	backend storage.Backend
	key     string
	chats   map[string][]*domain.Chat
}

// OpenChatStore loads the snapshot stored under key. A missing or unreadable
// snapshot yields an empty store; backend failures are returned.
func OpenChatStore(ctx context.Context, backend storage.Backend, key string, log *zap.Logger) (*ChatStore, error) {
	if key == "" {
		key = DefaultChatsKey
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &ChatStore{backend: backend, key: key, chats: make(map[string][]*domain.Chat)}

	data, err := backend.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("chat store: no snapshot, starting empty", zap.String("key", key))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat snapshot: %w", err)
	}

	var chats map[string][]*domain.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		log.Warn("chat store: unreadable snapshot, starting empty", zap.String("key", key), zap.Error(err))
		return s, nil
	}
	for userID, list := range chats {
		kept := make([]*domain.Chat, 0, len(list))
		for _, c := range list {
			if c == nil {
				continue
			}
			if c.Messages == nil {
				c.Messages = []domain.Message{}
			}
			kept = append(kept, c)
		}
		s.chats[userID] = kept
	}

	log.Info("chat store: loaded", zap.String("key", key), zap.Int("users", len(s.chats)))
	return s, nil
}

// Create prepends chat to the user's threads.
func (s *ChatStore) Create(ctx context.Context, userID string, chat *domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.chats[userID]
	next := make([]*domain.Chat, 0, len(prev)+1)
	next = append(next, chat.Clone())
	next = append(next, prev...)

	s.chats[userID] = next
	if err := s.persist(ctx); err != nil {
		s.restore(userID, prev, existed)
		return err
	}
	return nil
}

// List returns copies of the user's threads, newest first. Unknown users get
// an empty list and the store is not modified.
func (s *ChatStore) List(userID string) []*domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.chats[userID]
	out := make([]*domain.Chat, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}

// Get returns a copy of one thread.
func (s *ChatStore) Get(userID, chatID string) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, chat := s.find(userID, chatID)
	if chat == nil {
		return nil, domain.ErrChatNotFound
	}
	return chat.Clone(), nil
}

// Delete removes one thread.
func (s *ChatStore) Delete(ctx context.Context, userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, chat := s.find(userID, chatID)
	if chat == nil {
		return domain.ErrChatNotFound
	}

	prev := s.chats[userID]
	next := make([]*domain.Chat, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)

	s.chats[userID] = next
	if err := s.persist(ctx); err != nil {
		s.chats[userID] = prev
		return err
	}
	return nil
}

// AppendExchange records a question and its reply in one step and returns the
// updated thread. The thread is looked up again so a concurrent delete is
// reported as not found rather than resurrected.
func (s *ChatStore) AppendExchange(ctx context.Context, userID, chatID string, question, reply domain.Message) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, chat := s.find(userID, chatID)
	if chat == nil {
		return nil, domain.ErrChatNotFound
	}

	updated := chat.Clone()
	updated.ApplyExchange(question, reply)

	prev := s.chats[userID]
	next := make([]*domain.Chat, len(prev))
	copy(next, prev)
	next[idx] = updated

	s.chats[userID] = next
	if err := s.persist(ctx); err != nil {
		s.chats[userID] = prev
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *ChatStore) find(userID, chatID string) (int, *domain.Chat) {
	for i, c := range s.chats[userID] {
		if c.ID == chatID {
			return i, c
		}
	}
	return -1, nil
}

func (s *ChatStore) restore(userID string, prev []*domain.Chat, existed bool) {
	if existed {
		s.chats[userID] = prev
		return
	}
	delete(s.chats, userID)
}

func (s *ChatStore) persist(ctx context.Context) error {
	data, err := encodeSnapshot(s.chats)
	if err != nil {
		return domain.NewInternalError("failed to persist chats", err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return domain.NewInternalError("failed to persist chats", err)
	}
	return nil
}
