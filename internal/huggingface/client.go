// Package huggingface talks to the Hugging Face inference API for
// embeddings, text generation and image-to-text OCR.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/mentor/internal/domain"
)

const (
	DefaultBaseURL        = "https://api-inference.huggingface.co"
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultLLMModel       = "gpt2"
	DefaultOCRModel       = "microsoft/trocr-large-printed"

	DefaultEmbedTimeout    = 60 * time.Second
	DefaultGenerateTimeout = 120 * time.Second

	providerName = "huggingface"
	// maxErrorBody bounds how much of an error response is kept in the error.
	maxErrorBody = 512
)

// ErrNoAPIKey is returned when no Hugging Face token is configured
var ErrNoAPIKey = errors.New("huggingface api key not set")

// Observer records the outcome of each remote call.
type Observer interface {
	ObserveRemoteCall(provider, operation string, err error, elapsed time.Duration)
}

// GenerationParams are the text-generation parameters sent with every prompt.
type GenerationParams struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	ReturnFullText    bool    `json:"return_full_text"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// DefaultGenerationParams returns the parameters used for mentor answers.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxNewTokens:      300,
		Temperature:       0.2,
		TopP:              0.95,
		ReturnFullText:    false,
		RepetitionPenalty: 1.05,
	}
}

// Config holds the settings for constructing a Client.
type Config struct {
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	LLMModel        string
	OCRModel        string
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Client is a Hugging Face inference API client. It is safe for concurrent use.
type Client struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	llmModel       string
	ocrModel       string
	params         GenerationParams
	embedClient    *http.Client
	generateClient *http.Client
	observer       Observer
}

// NewClient constructs a Client, filling unset fields with defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		embeddingModel: orDefault(cfg.EmbeddingModel, DefaultEmbeddingModel),
		llmModel:       orDefault(cfg.LLMModel, DefaultLLMModel),
		ocrModel:       orDefault(cfg.OCRModel, DefaultOCRModel),
		params:         DefaultGenerationParams(),
		embedClient:    &http.Client{Timeout: durationOrDefault(cfg.EmbedTimeout, DefaultEmbedTimeout)},
		generateClient: &http.Client{Timeout: durationOrDefault(cfg.GenerateTimeout, DefaultGenerateTimeout)},
	}
	return c, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func durationOrDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
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

// post sends body to url and returns the response body of a 2xx reply.
func (c *Client) post(ctx context.Context, client *http.Client, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorMessage(data))
	}
	return data, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// Embed returns one vector per input text, in input order. A single text is
// sent as a JSON string, several as a JSON array.
func (c *Client) Embed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	if len(texts) == 0 {
		return nil, domain.ErrEmptyInput
	}

	start := time.Now()
	defer func() { c.observe("embed", err, start) }()

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, domain.NewInternalError("failed to encode embedding request", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", c.baseURL, c.embeddingModel)
	body, err := c.post(ctx, c.embedClient, url, "application/json", payload)
	if err != nil {
		return nil, domain.NewRemoteServiceError("embedding request failed", err)
	}

	vectors, err = parseEmbeddings(body, len(texts))
	if err != nil {
		return nil, domain.NewRemoteServiceError("embedding request failed", err)
	}
	return vectors, nil
}

// Generate flattens the prompt into a single text and asks the
// text-generation model to continue it.
func (c *Client) Generate(ctx context.Context, messages []domain.PromptMessage) (reply string, err error) {
	if len(messages) == 0 {
		return "", domain.ErrEmptyInput
	}

	start := time.Now()
	defer func() { c.observe("generate", err, start) }()

	payload, err := json.Marshal(struct {
		Inputs     string           `json:"inputs"`
		Parameters GenerationParams `json:"parameters"`
	}{
		Inputs:     FlattenPrompt(messages),
		Parameters: c.params,
	})
	if err != nil {
		return "", domain.NewInternalError("failed to encode generation request", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.llmModel)
	body, err := c.post(ctx, c.generateClient, url, "application/json", payload)
	if err != nil {
		return "", domain.NewRemoteServiceError("text generation failed", err)
	}

	text, err := parseGeneratedText(body)
	if err != nil {
		return "", domain.NewRemoteServiceError("text generation failed", err)
	}
	return text, nil
}

// ImageToText runs OCR over an image. An empty transcription is returned as
// an empty string.
func (c *Client) ImageToText(ctx context.Context, image []byte, contentType string) (text string, err error) {
	if len(image) == 0 {
		return "", domain.ErrEmptyInput
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	defer func() { c.observe("ocr", err, start) }()

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.ocrModel)
	body, err := c.post(ctx, c.generateClient, url, contentType, image)
	if err != nil {
		return "", domain.NewRemoteServiceError("image transcription failed", err)
	}

	text, err = parseGeneratedText(body)
	if err != nil {
		return "", domain.NewRemoteServiceError("image transcription failed", err)
	}
	return text, nil
}

type generatedText struct {
	GeneratedText string `json:"generated_text"`
}

// parseGeneratedText accepts both [{generated_text}] and {generated_text}.
func parseGeneratedText(body []byte) (string, error) {
	var list []generatedText
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", nil
		}
		return strings.TrimSpace(list[0].GeneratedText), nil
	}
	var single generatedText
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("unexpected response shape: %w", err)
	}
	return strings.TrimSpace(single.GeneratedText), nil
}
