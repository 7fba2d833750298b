package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/logging"
	"github.com/cloo-solutions/mentor/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEmbedBatchSize bounds how many chunks are embedded per provider call.
const DefaultEmbedBatchSize = 32

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeStore is the persistence boundary for indexed chunks.
type KnowledgeStore interface {
	Append(ctx context.Context, chunks []domain.Chunk) error
	Reset(ctx context.Context) error
	Len() int
	Dimension() int
	Sources() []string
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename, contentType string, data []byte) (string, error)
	IsSupported(filename string) bool
}

// IngestObserver receives ingestion outcomes for metrics.
type IngestObserver interface {
	ObserveIngest(source string, chunks int)
}

// IngestResult reports how many chunks an upload produced.
type IngestResult struct {
	Source  string `json:"source"`
	Indexed int    `json:"indexed"`
}

// Message renders the result the way the upload endpoint reports it.
func (r IngestResult) Message() string {
	return fmt.Sprintf("Indexed %d chunk(s) from %s", r.Indexed, r.Source)
}

// KnowledgeStats summarises the knowledge store.
type KnowledgeStats struct {
	Chunks    int      `json:"chunks"`
	Dimension int      `json:"dimension"`
	Sources   []string `json:"sources"`
}

// KnowledgeService handles ingestion of study material into the knowledge store.
type KnowledgeService struct {
	store     KnowledgeStore
	embedder  Embedder
	extractor TextExtractor
	observer  IngestObserver
	uuidGen   UUIDGenerator
	chunkCfg  ChunkConfig
	batchSize int
}

// NewKnowledgeService creates a new KnowledgeService instance. embedder may be
// nil, in which case chunks are stored without embeddings for keyword retrieval.
func NewKnowledgeService(store KnowledgeStore, embedder Embedder, extractor TextExtractor) *KnowledgeService {
	return &KnowledgeService{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		uuidGen:   &DefaultUUIDGenerator{},
		chunkCfg:  DefaultChunkConfig(),
		batchSize: DefaultEmbedBatchSize,
	}
}

// WithChunkConfig overrides the chunking parameters.
func (s *KnowledgeService) WithChunkConfig(cfg ChunkConfig) *KnowledgeService {
	s.chunkCfg = cfg
	return s
}

// WithBatchSize overrides the embedding batch size.
func (s *KnowledgeService) WithBatchSize(n int) *KnowledgeService {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithUUIDGen replaces the id generator (for testing).
func (s *KnowledgeService) WithUUIDGen(gen UUIDGenerator) *KnowledgeService {
	s.uuidGen = gen
	return s
}

// WithObserver attaches a metrics observer.
func (s *KnowledgeService) WithObserver(o IngestObserver) *KnowledgeService {
	s.observer = o
	return s
}

// IngestText chunks text, embeds every chunk and appends them to the store.
// It returns the number of chunks added. Nothing is stored if any step fails.
func (s *KnowledgeService) IngestText(ctx context.Context, source, text string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.IngestText", telemetry.SpanAttributes{
		Source:    source,
		Operation: "ingest",
	})
	defer span.End()

	pieces := ChunkText(text, s.chunkCfg)
	if len(pieces) == 0 {
		return 0, nil
	}

	vectors, err := s.embedAll(ctx, pieces)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{
			ID:        s.uuidGen.NewString(),
			Source:    source,
			Text:      p,
			Embedding: vectors[i],
		}
	}

	if err := s.store.Append(ctx, chunks); err != nil {
		span.SetError(err)
		return 0, err
	}

	if s.observer != nil {
		s.observer.ObserveIngest(source, len(chunks))
	}
	return len(chunks), nil
}

func (s *KnowledgeService) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(pieces))
	if s.embedder == nil {
		for range pieces {
			vectors = append(vectors, []float32{})
		}
		return vectors, nil
	}

	for start := 0; start < len(pieces); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.embedder.Embed(ctx, pieces[start:end])
		if err != nil {
			return nil, remoteError("embedding failed", err)
		}
		if len(batch) != end-start {
			return nil, domain.NewRemoteServiceError("embedding failed",
				fmt.Errorf("expected %d vectors, got %d", end-start, len(batch)))
		}
		vectors = append(vectors, batch...)
	}

	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, domain.NewRemoteServiceError("embedding failed",
				errors.New("provider returned empty or ragged vectors"))
		}
	}
	return vectors, nil
}

// IngestDocument extracts text from an uploaded file and indexes it.
// Unsupported file types are rejected. Extraction and embedding failures are
// logged and reported as zero chunks indexed.
func (s *KnowledgeService) IngestDocument(ctx context.Context, filename, contentType string, data []byte) (*IngestResult, error) {
	source := filepath.Base(strings.TrimSpace(filename))
	if source == "." || source == "/" || source == "" {
		return nil, domain.ErrMissingFile
	}
	if !s.extractor.IsSupported(source) {
		return nil, domain.ErrUnsupportedFormat
	}

	log := logging.FromContext(ctx).With(zap.String("source", source))
	result := &IngestResult{Source: source}

	text, err := s.extractor.Extract(ctx, source, contentType, data)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return nil, err
		}
		log.Warn("text extraction failed", zap.Error(err))
		return result, nil
	}

	n, err := s.IngestText(ctx, source, text)
	if err != nil {
		if domain.IsCode(err, domain.ErrCodeRemoteService) {
			log.Warn("embedding failed, nothing indexed", zap.Error(err))
			return result, nil
		}
		return nil, err
	}

	result.Indexed = n
	log.Info("document indexed", zap.Int("chunks", n))
	return result, nil
}

// Stats returns the size of the knowledge store.
func (s *KnowledgeService) Stats(ctx context.Context) *KnowledgeStats {
	return &KnowledgeStats{
		Chunks:    s.store.Len(),
		Dimension: s.store.Dimension(),
		Sources:   s.store.Sources(),
	}
}

// Reset removes every chunk from the store.
func (s *KnowledgeService) Reset(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Reset", telemetry.SpanAttributes{
		Operation: "reset",
	})
	defer span.End()

	return s.store.Reset(ctx)
}
