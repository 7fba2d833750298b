package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Create(ctx context.Context, userID string) (*domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatService) List(ctx context.Context, userID string) ([]*domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chat), args.Error(1)
}

func (m *MockChatService) Get(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	args := m.Called(ctx, userID, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatService) Delete(ctx context.Context, userID, chatID string) error {
	args := m.Called(ctx, userID, chatID)
	return args.Error(0)
}

func (m *MockChatService) SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendMessageOutput), args.Error(1)
}

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) IngestDocument(ctx context.Context, filename, contentType string, data []byte) (*service.IngestResult, error) {
	args := m.Called(ctx, filename, contentType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockKnowledgeService) Stats(ctx context.Context) *service.KnowledgeStats {
	args := m.Called(ctx)
	return args.Get(0).(*service.KnowledgeStats)
}

// withURLParams attaches chi URL parameters to a request.
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
