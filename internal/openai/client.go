package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/mentor/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultChatModel is the OpenAI model used for answering questions
	DefaultChatModel = openai.GPT4oMini
	// DefaultTimeout bounds a single HTTP call, generation included
	DefaultTimeout = 120 * time.Second
	// DefaultEmbedTimeout bounds one embedding request
	DefaultEmbedTimeout = 60 * time.Second

	providerName = "openai"
)

// ErrNoAPIKey is returned when no OpenAI API key is configured
var ErrNoAPIKey = errors.New("openai api key not set")

// EmbeddingAPI is the subset of the OpenAI client used for embeddings
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ChatAPI is the subset of the OpenAI client used for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Observer records the outcome of each remote call.
type Observer interface {
	ObserveRemoteCall(provider, operation string, err error, elapsed time.Duration)
}

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	Timeout        time.Duration
	EmbedTimeout   time.Duration
}

// Client wraps the OpenAI API client
type Client struct {
	embeddings     EmbeddingAPI
	chat           ChatAPI
	embeddingModel openai.EmbeddingModel
	chatModel      string
	embedTimeout   time.Duration
	observer       Observer
}

// NewClient creates a new OpenAI client with explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	api := openai.NewClientWithConfig(clientCfg)
	return newClient(api, api, cfg), nil
}

func newClient(embeddings EmbeddingAPI, chat ChatAPI, cfg Config) *Client {
	embeddingModel := openai.EmbeddingModel(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embedTimeout := cfg.EmbedTimeout
	if embedTimeout <= 0 {
		embedTimeout = DefaultEmbedTimeout
	}
	return &Client{
		embeddings:     embeddings,
		chat:           chat,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		embedTimeout:   embedTimeout,
	}
}

// WithObserver attaches a metrics observer.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

func (c *Client) observe(operation string, err error, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRemoteCall(providerName, operation, err, time.Since(start))
	}
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	if len(texts) == 0 {
		return nil, domain.ErrEmptyInput
	}

	start := time.Now()
	defer func() { c.observe("embed", err, start) }()

	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	resp, err := c.embeddings.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, domain.NewRemoteServiceError("embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.NewRemoteServiceError("embedding request failed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors = make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, domain.NewRemoteServiceError("embedding request failed",
				fmt.Errorf("unexpected embedding index %d", d.Index))
		}
		if len(d.Embedding) == 0 {
			return nil, domain.NewRemoteServiceError("embedding request failed",
				fmt.Errorf("empty embedding at index %d", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Generate sends the prompt as a chat completion and returns the first choice.
func (c *Client) Generate(ctx context.Context, messages []domain.PromptMessage) (reply string, err error) {
	if len(messages) == 0 {
		return "", domain.ErrEmptyInput
	}

	start := time.Now()
	defer func() { c.observe("generate", err, start) }()

	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: 0.2,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewRemoteServiceError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
