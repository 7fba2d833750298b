package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/telemetry"
)

// DefaultSystemPrompt instructs the model to act as a mentor grounded in the
// retrieved passages.
const DefaultSystemPrompt = `You are "My Mentor", a helpful teacher for Indian school students.
Use ONLY the provided context (from NCERT or user uploads) to answer clearly and step-by-step.
If the answer is not in the context, say: "I don't have enough info from the provided books."`

// FallbackAnswer is returned when the model produces an empty reply.
const FallbackAnswer = "I couldn't generate an answer."

// DefaultHistoryLimit is how many prior messages are included in a prompt.
const DefaultHistoryLimit = 5

// Generator produces a reply for an ordered list of prompt messages.
type Generator interface {
	Generate(ctx context.Context, messages []domain.PromptMessage) (string, error)
}

// BuildPrompt assembles the message list for one question: the system
// instruction, an optional context block, the last historyLimit messages of
// the thread, and the question itself.
func BuildPrompt(system string, chunks []ScoredChunk, history []domain.Message, question string, historyLimit int) []domain.PromptMessage {
	if system == "" {
		system = DefaultSystemPrompt
	}

	messages := []domain.PromptMessage{{Role: domain.RoleSystem, Content: system}}
	if block := FormatContext(chunks); block != "" {
		messages = append(messages, domain.PromptMessage{Role: domain.RoleSystem, Content: block})
	}

	if historyLimit < 0 {
		historyLimit = 0
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, m := range history {
		messages = append(messages, domain.PromptMessage{Role: m.Role, Content: m.Content})
	}

	return append(messages, domain.PromptMessage{Role: domain.RoleUser, Content: question})
}

// FormatContext renders retrieved chunks as numbered source blocks.
func FormatContext(chunks []ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("# Source %d (%s)\n%s", i+1, c.Source, c.Text)
	}
	return "Context:\n" + strings.Join(blocks, "\n\n")
}

// AnswerService generates mentor replies from retrieved context.
type AnswerService struct {
	generator    Generator
	systemPrompt string
	historyLimit int
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(generator Generator) *AnswerService {
	return &AnswerService{
		generator:    generator,
		systemPrompt: DefaultSystemPrompt,
		historyLimit: DefaultHistoryLimit,
	}
}

// WithHistoryLimit overrides how many prior messages are sent with a question.
func (s *AnswerService) WithHistoryLimit(n int) *AnswerService {
	if n >= 0 {
		s.historyLimit = n
	}
	return s
}

// Answer asks the model one question. An empty reply becomes FallbackAnswer;
// a provider failure is returned as a remote service error.
func (s *AnswerService) Answer(ctx context.Context, chunks []ScoredChunk, history []domain.Message, question string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		Operation: "generate",
	})
	defer span.End()

	prompt := BuildPrompt(s.systemPrompt, chunks, history, question, s.historyLimit)
	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return "", remoteError("Failed to generate answer", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return FallbackAnswer, nil
	}
	return reply, nil
}

// remoteError keeps an existing domain error and wraps anything else as a
// remote service failure.
func remoteError(message string, err error) error {
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	return domain.NewRemoteServiceError(message, err)
}
