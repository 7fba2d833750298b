package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/mentor/internal/api/handlers"
	"github.com/cloo-solutions/mentor/internal/api/middleware"
	"github.com/cloo-solutions/mentor/internal/config"
	"github.com/cloo-solutions/mentor/internal/database"
	"github.com/cloo-solutions/mentor/internal/extract"
	"github.com/cloo-solutions/mentor/internal/huggingface"
	"github.com/cloo-solutions/mentor/internal/metrics"
	"github.com/cloo-solutions/mentor/internal/openai"
	"github.com/cloo-solutions/mentor/internal/repository"
	"github.com/cloo-solutions/mentor/internal/server"
	"github.com/cloo-solutions/mentor/internal/service"
	"github.com/cloo-solutions/mentor/internal/storage"
	"go.uber.org/zap"
)

// App holds the stores and services shared by the daemon and the admin
// commands.
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics

	Backend   storage.Backend
	Knowledge *repository.KnowledgeStore
	Chats     *repository.ChatStore

	KnowledgeService *service.KnowledgeService
	ChatService      *service.ChatService

	rateLimiter *middleware.RateLimiter
}

// OpenApp opens the configured storage backend and loads both stores.
// Providers are not contacted until BuildServices is called.
func OpenApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	kb, err := repository.OpenKnowledgeStore(ctx, backend, repository.DefaultKnowledgeKey, log)
	if err != nil {
		backend.Close()
		return nil, err
	}
	chats, err := repository.OpenChatStore(ctx, backend, repository.DefaultChatsKey, log)
	if err != nil {
		backend.Close()
		return nil, err
	}

	log.Info("stores loaded",
		zap.String("storage", cfg.Storage),
		zap.Int("chunks", kb.Len()),
	)

	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   metrics.New(),
		Backend:   backend,
		Knowledge: kb,
		Chats:     chats,
	}, nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemoryBackend(), nil

	case config.StorageFile:
		return storage.NewFileBackend(cfg.DataDir)

	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
		return storage.OpenSQLite(ctx, cfg.SQLitePath)

	case config.StoragePostgres:
		if err := database.Migrate(cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		log.Info("connected to database")
		return storage.NewPostgresBackend(pool), nil

	case config.StorageS3:
		s3cfg := storage.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			UsePathStyle: cfg.S3UsePathStyle,
		}
		if cfg.HasS3Credentials() {
			s3cfg.AccessKeyID = cfg.S3AccessKey
			s3cfg.SecretAccessKey = cfg.S3SecretKey
		}
		b, err := storage.NewS3Backend(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("s3 bucket ready", zap.String("bucket", cfg.S3Bucket))
		return b, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}

// providers is the set of remote model clients selected by configuration.
type providers struct {
	embedder  service.Embedder
	generator service.Generator
	ocr       extract.ImageTranscriber
}

func newProviders(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*providers, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		hf  *huggingface.Client
		oai *openai.Client
		err error
	)
	hfClient := func() (*huggingface.Client, error) {
		if hf != nil {
			return hf, nil
		}
		hf, err = huggingface.NewClient(huggingface.Config{
			APIKey:          cfg.HuggingFaceAPIKey,
			BaseURL:         cfg.HuggingFaceBaseURL,
			EmbeddingModel:  cfg.HuggingFaceEmbeddingModel,
			LLMModel:        cfg.HuggingFaceLLMModel,
			OCRModel:        cfg.HuggingFaceOCRModel,
			EmbedTimeout:    cfg.EmbedTimeout,
			GenerateTimeout: cfg.GenerateTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("huggingface: %w", err)
		}
		if m != nil {
			hf.WithObserver(m)
		}
		return hf, nil
	}
	openaiClient := func() (*openai.Client, error) {
		if oai != nil {
			return oai, nil
		}
		oai, err = openai.NewClient(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			EmbeddingModel: cfg.OpenAIEmbeddingModel,
			ChatModel:      cfg.OpenAIChatModel,
			Timeout:        cfg.GenerateTimeout,
			EmbedTimeout:   cfg.EmbedTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		if m != nil {
			oai.WithObserver(m)
		}
		return oai, nil
	}

	p := &providers{}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := openaiClient()
		if err != nil {
			return nil, err
		}
		p.generator = c
	default:
		c, err := hfClient()
		if err != nil {
			return nil, err
		}
		p.generator = c
	}

	if cfg.NeedsEmbedder() {
		switch cfg.EmbeddingProvider {
		case config.ProviderOpenAI:
			c, err := openaiClient()
			if err != nil {
				return nil, err
			}
			p.embedder = c
		default:
			c, err := hfClient()
			if err != nil {
				return nil, err
			}
			p.embedder = c
		}
	}

	if cfg.HuggingFaceAPIKey != "" {
		c, err := hfClient()
		if err != nil {
			return nil, err
		}
		p.ocr = c
	} else {
		log.Info("image OCR disabled: no huggingface api key")
	}

	return p, nil
}

// BuildServices constructs the provider clients and the domain services.
func (a *App) BuildServices() error {
	p, err := newProviders(a.Config, a.Metrics, a.Log)
	if err != nil {
		return err
	}
	return a.buildServices(p)
}

func (a *App) buildServices(p *providers) error {
	cfg := a.Config

	// Keyword-mode chunks carry no vectors and cannot be scored against embeddings.
	if cfg.NeedsEmbedder() && a.Knowledge.Len() > 0 && a.Knowledge.Dimension() == 0 {
		a.Log.Warn("knowledge store holds keyword-mode chunks; run `mentord knowledge reset --yes` and re-ingest before using embedding retrieval",
			zap.Int("chunks", a.Knowledge.Len()),
			zap.String("retriever", cfg.Retriever),
		)
	}

	retriever, err := service.NewRetriever(cfg.Retriever, a.Knowledge, p.embedder, a.Metrics)
	if err != nil {
		return err
	}

	extractor := extract.NewExtractor(p.ocr)

	a.KnowledgeService = service.NewKnowledgeService(a.Knowledge, p.embedder, extractor).
		WithChunkConfig(service.ChunkConfig{
			Size:     cfg.ChunkSize,
			Overlap:  cfg.ChunkOverlap,
			MinChars: service.DefaultChunkConfig().MinChars,
		}).
		WithBatchSize(cfg.EmbedBatchSize).
		WithObserver(a.Metrics)

	answerer := service.NewAnswerService(p.generator).WithHistoryLimit(cfg.HistoryLimit)
	a.ChatService = service.NewChatService(a.Chats, retriever, answerer).
		WithTopK(cfg.TopK).
		WithHistoryLimit(cfg.HistoryLimit)
	return nil
}

// Router builds the HTTP handler over the services. BuildServices must have
// been called.
func (a *App) Router() (http.Handler, error) {
	if a.ChatService == nil || a.KnowledgeService == nil {
		return nil, errors.New("services not built")
	}
	cfg := a.Config

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	routerCfg := server.RouterConfig{
		Logger:           a.Log,
		Metrics:          a.Metrics,
		CORSOrigins:      cfg.CORSOrigins,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		ChatHandler:      handlers.NewChatHandler(a.ChatService),
		UploadHandler:    handlers.NewUploadHandler(a.KnowledgeService, cfg.UploadDir),
		KnowledgeHandler: handlers.NewKnowledgeHandler(a.KnowledgeService),
		Health:           handlers.Health(a.KnowledgeService),
	}
	if cfg.HasAuth() {
		routerCfg.TokenValidator = middleware.NewStaticTokenValidator(cfg.APIToken)
	}
	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		routerCfg.RateLimiter = a.rateLimiter
	}

	return server.NewRouter(routerCfg), nil
}

// Close releases the rate limiter and the storage backend.
func (a *App) Close() error {
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	return a.Backend.Close()
}
