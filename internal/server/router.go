package server

import (
	"net/http"

	"github.com/cloo-solutions/mentor/internal/api/handlers"
	"github.com/cloo-solutions/mentor/internal/api/middleware"
	"github.com/cloo-solutions/mentor/internal/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultMaxBodyBytes   int64 = 2 << 20
	defaultMaxUploadBytes int64 = 50 << 20
)

type RouterConfig struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// TokenValidator enables bearer auth on the chat and upload routes when set.
	TokenValidator middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
	CORSOrigins    []string
	MaxBodyBytes   int64
	MaxUploadBytes int64

	ChatHandler      *handlers.ChatHandler
	UploadHandler    *handlers.UploadHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	Health           http.HandlerFunc
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	if cfg.Health != nil {
		r.Get("/health", cfg.Health)
	}
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.TokenValidator != nil {
			r.Use(middleware.BearerAuth(cfg.TokenValidator))
		}

		r.Route("/chats/{userId}", func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(maxBody))
			r.Get("/", cfg.ChatHandler.List)
			r.Post("/new", cfg.ChatHandler.Create)
			r.Get("/{chatId}", cfg.ChatHandler.Get)
			r.Delete("/{chatId}", cfg.ChatHandler.Delete)
			r.Post("/{chatId}/message", cfg.ChatHandler.SendMessage)
		})

		r.With(middleware.MaxBodyBytes(maxUpload)).Post("/upload", cfg.UploadHandler.Upload)
		r.Get("/knowledge", cfg.KnowledgeHandler.Stats)
	})

	return r
}
