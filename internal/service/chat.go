package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/telemetry"
)

// ChatRepository is the persistence boundary for chat threads.
type ChatRepository interface {
	Create(ctx context.Context, userID string, chat *domain.Chat) error
	List(userID string) []*domain.Chat
	Get(userID, chatID string) (*domain.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
	AppendExchange(ctx context.Context, userID, chatID string, question, reply domain.Message) (*domain.Chat, error)
}

// Answerer produces a reply to a question from retrieved context and history.
type Answerer interface {
	Answer(ctx context.Context, chunks []ScoredChunk, history []domain.Message, question string) (string, error)
}

// SendMessageInput is a question posted to a chat thread.
type SendMessageInput struct {
	UserID  string
	ChatID  string
	Role    domain.Role
	Content string
}

// SendMessageOutput carries the reply and the updated thread.
type SendMessageOutput struct {
	Answer string       `json:"answer"`
	Chat   *domain.Chat `json:"chat"`
}

// ChatService handles chat threads and the question/answer loop.
type ChatService struct {
	repo         ChatRepository
	retriever    Retriever
	answerer     Answerer
	uuidGen      UUIDGenerator
	now          func() time.Time
	topK         int
	historyLimit int
}

// NewChatService creates a new ChatService instance
func NewChatService(repo ChatRepository, retriever Retriever, answerer Answerer) *ChatService {
	return &ChatService{
		repo:         repo,
		retriever:    retriever,
		answerer:     answerer,
		uuidGen:      &DefaultUUIDGenerator{},
		now:          func() time.Time { return time.Now().UTC() },
		topK:         DefaultTopK,
		historyLimit: DefaultHistoryLimit,
	}
}

// WithTopK overrides how many passages are retrieved per question.
func (s *ChatService) WithTopK(k int) *ChatService {
	if k > 0 {
		s.topK = k
	}
	return s
}

// WithHistoryLimit overrides how many prior messages are passed to the answerer.
func (s *ChatService) WithHistoryLimit(n int) *ChatService {
	if n >= 0 {
		s.historyLimit = n
	}
	return s
}

// WithUUIDGen replaces the id generator (for testing).
func (s *ChatService) WithUUIDGen(gen UUIDGenerator) *ChatService {
	s.uuidGen = gen
	return s
}

// WithClock replaces the clock (for testing).
func (s *ChatService) WithClock(now func() time.Time) *ChatService {
	s.now = now
	return s
}

// Create starts an empty thread for the user.
func (s *ChatService) Create(ctx context.Context, userID string) (*domain.Chat, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Create", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "create",
	})
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrMissingUserID
	}

	chat := domain.NewChat(s.uuidGen.NewString(), s.now())
	if err := s.repo.Create(ctx, userID, chat); err != nil {
		span.SetError(err)
		return nil, err
	}
	return chat, nil
}

// List returns the user's threads, newest first.
func (s *ChatService) List(ctx context.Context, userID string) ([]*domain.Chat, error) {
	return s.repo.List(userID), nil
}

// Get returns one thread.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	return s.repo.Get(userID, chatID)
}

// Delete removes one thread.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Delete", telemetry.SpanAttributes{
		UserID:    userID,
		ChatID:    chatID,
		Operation: "delete",
	})
	defer span.End()

	return s.repo.Delete(ctx, userID, chatID)
}

// SendMessage answers a question in a thread and records the exchange.
// The thread is only modified once a reply has been produced.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.SendMessage", telemetry.SpanAttributes{
		UserID:    input.UserID,
		ChatID:    input.ChatID,
		Operation: "message",
	})
	defer span.End()

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser {
		return nil, domain.ErrInvalidRole
	}
	question := strings.TrimSpace(input.Content)
	if question == "" {
		return nil, domain.ErrMissingContent
	}

	chat, err := s.repo.Get(input.UserID, input.ChatID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	reply, err := s.answerer.Answer(ctx, chunks, chat.Recent(s.historyLimit), question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	now := s.now()
	updated, err := s.repo.AppendExchange(ctx, input.UserID, input.ChatID,
		domain.Message{Role: domain.RoleUser, Content: question, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: reply, Timestamp: now},
	)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &SendMessageOutput{Answer: reply, Chat: updated}, nil
}
