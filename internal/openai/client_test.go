package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/mentor/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	args := m.Called(ctx, conv)
	return args.Get(0).(openai.EmbeddingResponse), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

type recordingObserver struct {
	calls []string
	errs  []error
}

func (o *recordingObserver) ObserveRemoteCall(provider, operation string, err error, elapsed time.Duration) {
	o.calls = append(o.calls, provider+"/"+operation)
	o.errs = append(o.errs, err)
}

func newMockClient(api *MockOpenAIAPI) *Client {
	return newClient(api, api, Config{})
}

func TestClient_Embed_ReordersByIndex(t *testing.T) {
	api := new(MockOpenAIAPI)
	api.On("CreateEmbeddings", mock.Anything, openai.EmbeddingRequest{
		Input: []string{"first", "second"},
		Model: DefaultEmbeddingModel,
	}).Return(openai.EmbeddingResponse{Data: []openai.Embedding{
		{Index: 1, Embedding: []float32{0, 1}},
		{Index: 0, Embedding: []float32{1, 0}},
	}}, nil)

	obs := &recordingObserver{}
	vectors, err := newMockClient(api).WithObserver(obs).Embed(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, []string{"openai/embed"}, obs.calls)
	assert.Nil(t, obs.errs[0])
	api.AssertExpectations(t)
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	api := new(MockOpenAIAPI)

	vectors, err := newMockClient(api).Embed(context.Background(), nil)

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	api.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestClient_Embed_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp openai.EmbeddingResponse
		err  error
	}{
		{name: "api error", err: errors.New("API rate limit exceeded")},
		{name: "count mismatch", resp: openai.EmbeddingResponse{Data: []openai.Embedding{{Index: 0, Embedding: []float32{1}}}}},
		{name: "duplicate index", resp: openai.EmbeddingResponse{Data: []openai.Embedding{
			{Index: 0, Embedding: []float32{1}},
			{Index: 0, Embedding: []float32{2}},
		}}},
		{name: "empty vector", resp: openai.EmbeddingResponse{Data: []openai.Embedding{
			{Index: 0, Embedding: []float32{1}},
			{Index: 1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockOpenAIAPI)
			api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(tt.resp, tt.err)

			vectors, err := newMockClient(api).Embed(context.Background(), []string{"a", "b"})

			assert.Nil(t, vectors)
			assert.True(t, domain.IsCode(err, domain.ErrCodeRemoteService))
		})
	}
}

func TestClient_Generate(t *testing.T) {
	api := new(MockOpenAIAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == DefaultChatModel &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[1].Role == openai.ChatMessageRoleUser &&
			req.Messages[1].Content == "What is photosynthesis?"
	})).Return(openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: "  Plants make food.  "}},
	}}, nil)

	reply, err := newMockClient(api).Generate(context.Background(), []domain.PromptMessage{
		{Role: domain.RoleSystem, Content: "You are a mentor."},
		{Role: domain.RoleUser, Content: "What is photosynthesis?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Plants make food.", reply)
	api.AssertExpectations(t)
}

func TestClient_Generate_NoChoices(t *testing.T) {
	api := new(MockOpenAIAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)

	reply, err := newMockClient(api).Generate(context.Background(), []domain.PromptMessage{{Role: domain.RoleUser, Content: "hi"}})

	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestClient_Generate_APIError(t *testing.T) {
	api := new(MockOpenAIAPI)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, errors.New("context deadline exceeded"))

	obs := &recordingObserver{}
	_, err := newMockClient(api).WithObserver(obs).Generate(context.Background(), []domain.PromptMessage{{Role: domain.RoleUser, Content: "hi"}})

	assert.True(t, domain.IsCode(err, domain.ErrCodeRemoteService))
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0])
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test-api-key", ChatModel: "gpt-4o"})

	require.NoError(t, err)
	assert.NotNil(t, client.embeddings)
	assert.Equal(t, DefaultEmbeddingModel, client.embeddingModel)
	assert.Equal(t, "gpt-4o", client.chatModel)
}

func TestNewClient_NoAPIKey(t *testing.T) {
	client, err := NewClient(Config{})

	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

// slowEmbeddingAPI blocks until the request context ends.
type slowEmbeddingAPI struct{}

func (slowEmbeddingAPI) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	<-ctx.Done()
	return openai.EmbeddingResponse{}, ctx.Err()
}

func TestClient_Embed_HonoursEmbedTimeout(t *testing.T) {
	c := newClient(slowEmbeddingAPI{}, new(MockOpenAIAPI), Config{EmbedTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.Embed(context.Background(), []string{"slow"})

	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeRemoteService))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClient_DefaultEmbedTimeout(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test-api-key"})

	require.NoError(t, err)
	assert.Equal(t, DefaultEmbedTimeout, client.embedTimeout)
}
