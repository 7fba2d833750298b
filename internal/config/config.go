package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MENTOR"

const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageS3       = "s3"

	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"

	RetrieverEmbedding = "embedding"
	RetrieverKeyword   = "keyword"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"5000"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DataDir   string `envconfig:"DATA_DIR" default:"data"`
	UploadDir string `envconfig:"UPLOAD_DIR"`

	// Storage selects the snapshot backend for the knowledge and chat stores.
	Storage     string `envconfig:"STORAGE" default:"file"`
	SQLitePath  string `envconfig:"SQLITE_PATH"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket       string `envconfig:"S3_BUCKET" default:"mentor-data"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix       string `envconfig:"S3_PREFIX"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`

	Provider          string `envconfig:"PROVIDER" default:"huggingface"`
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`

	HuggingFaceAPIKey         string `envconfig:"HUGGINGFACE_API_KEY"`
	HuggingFaceBaseURL        string `envconfig:"HUGGINGFACE_BASE_URL" default:"https://api-inference.huggingface.co"`
	HuggingFaceEmbeddingModel string `envconfig:"HUGGINGFACE_EMBEDDING_MODEL" default:"sentence-transformers/all-MiniLM-L6-v2"`
	HuggingFaceLLMModel       string `envconfig:"HUGGINGFACE_LLM_MODEL" default:"gpt2"`
	HuggingFaceOCRModel       string `envconfig:"HUGGINGFACE_OCR_MODEL" default:"microsoft/trocr-large-printed"`

	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL        string `envconfig:"OPENAI_BASE_URL"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAIChatModel      string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`

	Retriever      string `envconfig:"RETRIEVER" default:"embedding"`
	ChunkSize      int    `envconfig:"CHUNK_SIZE" default:"700"`
	ChunkOverlap   int    `envconfig:"CHUNK_OVERLAP" default:"120"`
	TopK           int    `envconfig:"TOP_K" default:"4"`
	HistoryLimit   int    `envconfig:"HISTORY_LIMIT" default:"5"`
	EmbedBatchSize int    `envconfig:"EMBED_BATCH_SIZE" default:"32"`

	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"60s"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"120s"`

	// APIToken enables bearer-token auth on the API when set.
	APIToken       string   `envconfig:"API_TOKEN"`
	RateLimitRPS   float64  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int      `envconfig:"RATE_LIMIT_BURST" default:"20"`
	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`
	MaxBodyBytes   int64    `envconfig:"MAX_BODY_BYTES" default:"2097152"`
	MaxUploadBytes int64    `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	UploadTTL     time.Duration `envconfig:"UPLOAD_TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) applyDerived() {
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "mentor.db")
	}
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = c.Provider
	}
}

// Validate checks enumerated settings and numeric ranges. Errors name the
// offending variable.
func (c *Config) Validate() error {
	var errs []error
	bad := func(name, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s_%s: %s", envPrefix, name, fmt.Sprintf(format, args...)))
	}

	switch c.Storage {
	case StorageFile, StorageMemory, StorageSQLite, StorageS3:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			bad("DATABASE_URL", "required when storage is %q", StoragePostgres)
		}
	default:
		bad("STORAGE", "unknown backend %q", c.Storage)
	}
	if c.Storage == StorageS3 && c.S3Bucket == "" {
		bad("S3_BUCKET", "required when storage is %q", StorageS3)
	}

	if !validProvider(c.Provider) {
		bad("PROVIDER", "unknown provider %q", c.Provider)
	}
	if !validProvider(c.EmbeddingProvider) {
		bad("EMBEDDING_PROVIDER", "unknown provider %q", c.EmbeddingProvider)
	}
	if c.Retriever != RetrieverEmbedding && c.Retriever != RetrieverKeyword {
		bad("RETRIEVER", "unknown retriever %q", c.Retriever)
	}

	if c.ChunkSize <= 0 {
		bad("CHUNK_SIZE", "must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		bad("CHUNK_OVERLAP", "must be in [0, CHUNK_SIZE)")
	}
	if c.TopK <= 0 {
		bad("TOP_K", "must be positive")
	}
	if c.HistoryLimit < 0 {
		bad("HISTORY_LIMIT", "must not be negative")
	}
	if c.EmbedBatchSize <= 0 {
		bad("EMBED_BATCH_SIZE", "must be positive")
	}
	if c.RateLimitRPS < 0 {
		bad("RATE_LIMIT_RPS", "must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		bad("MAX_UPLOAD_BYTES", "must be positive")
	}

	return errors.Join(errs...)
}

func validProvider(p string) bool {
	return p == ProviderHuggingFace || p == ProviderOpenAI
}

// NeedsEmbedder reports whether the configured retriever requires embeddings.
func (c *Config) NeedsEmbedder() bool {
	return c.Retriever == RetrieverEmbedding
}

func (c *Config) HasS3Credentials() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasAuth() bool {
	return c.APIToken != ""
}
