package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, []string) [][]float32); ok {
		return fn(ctx, texts), args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ScoredChunk), args.Error(1)
}

// MockAnswerer is a mock implementation of Answerer
type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, chunks []ScoredChunk, history []domain.Message, question string) (string, error) {
	args := m.Called(ctx, chunks, history, question)
	return args.String(0), args.Error(1)
}

// MockExtractor is a mock implementation of TextExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, filename, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockExtractor) IsSupported(filename string) bool {
	args := m.Called(filename)
	return args.Bool(0)
}

// MockChatRepository is a mock implementation of ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, userID string, chat *domain.Chat) error {
	args := m.Called(ctx, userID, chat)
	return args.Error(0)
}

func (m *MockChatRepository) List(userID string) []*domain.Chat {
	args := m.Called(userID)
	return args.Get(0).([]*domain.Chat)
}

func (m *MockChatRepository) Get(userID, chatID string) (*domain.Chat, error) {
	args := m.Called(userID, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) Delete(ctx context.Context, userID, chatID string) error {
	args := m.Called(ctx, userID, chatID)
	return args.Error(0)
}

func (m *MockChatRepository) AppendExchange(ctx context.Context, userID, chatID string, question, reply domain.Message) (*domain.Chat, error) {
	args := m.Called(ctx, userID, chatID, question, reply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

// memoryKnowledge is an in-memory KnowledgeStore and ChunkSource.
type memoryKnowledge struct {
	chunks    []domain.Chunk
	appendErr error
}

func (s *memoryKnowledge) Append(ctx context.Context, chunks []domain.Chunk) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *memoryKnowledge) Reset(ctx context.Context) error {
	s.chunks = nil
	return nil
}

func (s *memoryKnowledge) All() []domain.Chunk { return s.chunks }
func (s *memoryKnowledge) Len() int            { return len(s.chunks) }

func (s *memoryKnowledge) Dimension() int {
	if len(s.chunks) == 0 {
		return 0
	}
	return len(s.chunks[0].Embedding)
}

func (s *memoryKnowledge) Sources() []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range s.chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			out = append(out, c.Source)
		}
	}
	return out
}

// sequentialUUIDGenerator returns id-1, id-2, ...
type sequentialUUIDGenerator struct {
	n int
}

func (g *sequentialUUIDGenerator) NewString() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}
