package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/telemetry"
)

// DefaultTopK is the number of passages retrieved when the caller passes k <= 0.
const DefaultTopK = 4

// Retriever modes accepted by NewRetriever.
const (
	RetrieverEmbedding = "embedding"
	RetrieverKeyword   = "keyword"
)

// ScoredChunk is a knowledge chunk paired with its relevance to a query.
type ScoredChunk struct {
	domain.Chunk
	Score float64 `json:"score"`
}

// Retriever returns the chunks most relevant to a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkSource exposes a point-in-time view of the knowledge store.
type ChunkSource interface {
	All() []domain.Chunk
	Dimension() int
}

// RetrievalObserver receives retrieval outcomes for metrics.
type RetrievalObserver interface {
	ObserveRetrieval(mode string, results int)
}

// EmbeddingRetriever ranks chunks by cosine similarity to the query embedding.
type EmbeddingRetriever struct {
	store    ChunkSource
	embedder Embedder
	observer RetrievalObserver
}

// NewEmbeddingRetriever creates a new EmbeddingRetriever instance
func NewEmbeddingRetriever(store ChunkSource, embedder Embedder) *EmbeddingRetriever {
	return &EmbeddingRetriever{store: store, embedder: embedder}
}

// WithObserver attaches a metrics observer.
func (r *EmbeddingRetriever) WithObserver(o RetrievalObserver) *EmbeddingRetriever {
	r.observer = o
	return r
}

// Retrieve embeds the query once and scans every stored chunk.
func (r *EmbeddingRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingRetriever.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	if k <= 0 {
		k = DefaultTopK
	}

	chunks := r.store.All()
	if len(chunks) == 0 {
		r.observe(RetrieverEmbedding, 0)
		return []ScoredChunk{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		span.SetError(err)
		return nil, remoteError("embedding failed", err)
	}
	if len(vectors) != 1 {
		return nil, domain.NewRemoteServiceError("embedding failed",
			fmt.Errorf("expected 1 query vector, got %d", len(vectors)))
	}
	queryVec := vectors[0]
	if dim := r.store.Dimension(); len(queryVec) != dim {
		return nil, domain.NewRemoteServiceError("embedding failed",
			fmt.Errorf("query dimension %d does not match store dimension %d", len(queryVec), dim))
	}

	scored := make([]ScoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = ScoredChunk{Chunk: c, Score: CosineSimilarity(queryVec, c.Embedding)}
	}

	results := topK(scored, k)
	r.observe(RetrieverEmbedding, len(results))
	return results, nil
}

func (r *EmbeddingRetriever) observe(mode string, n int) {
	if r.observer != nil {
		r.observer.ObserveRetrieval(mode, n)
	}
}

// KeywordRetriever ranks chunks by how many query tokens they contain.
// It never calls an embedding provider.
type KeywordRetriever struct {
	store    ChunkSource
	observer RetrievalObserver
}

// NewKeywordRetriever creates a new KeywordRetriever instance
func NewKeywordRetriever(store ChunkSource) *KeywordRetriever {
	return &KeywordRetriever{store: store}
}

// WithObserver attaches a metrics observer.
func (r *KeywordRetriever) WithObserver(o RetrievalObserver) *KeywordRetriever {
	r.observer = o
	return r
}

// Retrieve scores each chunk by the number of lowercase query tokens that
// occur as substrings of its lowercase text. Repeated tokens count each time.
// Chunks scoring zero are excluded.
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	_, span := telemetry.StartSpan(ctx, "KeywordRetriever.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	if k <= 0 {
		k = DefaultTopK
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		r.observe(0)
		return []ScoredChunk{}, nil
	}

	var scored []ScoredChunk
	for _, c := range r.store.All() {
		text := strings.ToLower(c.Text)
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				hits++
			}
		}
		if hits > 0 {
			scored = append(scored, ScoredChunk{Chunk: c, Score: float64(hits)})
		}
	}

	results := topK(scored, k)
	r.observe(len(results))
	return results, nil
}

func (r *KeywordRetriever) observe(n int) {
	if r.observer != nil {
		r.observer.ObserveRetrieval(RetrieverKeyword, n)
	}
}

// topK sorts by descending score, keeping insertion order among ties.
func topK(scored []ScoredChunk, k int) []ScoredChunk {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	if scored == nil {
		return []ScoredChunk{}
	}
	return scored
}

// NewRetriever selects a retrieval strategy by mode.
func NewRetriever(mode string, store ChunkSource, embedder Embedder, observer RetrievalObserver) (Retriever, error) {
	switch mode {
	case "", RetrieverEmbedding:
		if embedder == nil {
			return nil, fmt.Errorf("embedding retriever requires an embedding provider")
		}
		return NewEmbeddingRetriever(store, embedder).WithObserver(observer), nil
	case RetrieverKeyword:
		return NewKeywordRetriever(store).WithObserver(observer), nil
	default:
		return nil, fmt.Errorf("unknown retriever %q", mode)
	}
}
