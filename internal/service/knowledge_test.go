package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingIngestObserver struct {
	source string
	chunks int
}

func (o *recordingIngestObserver) ObserveIngest(source string, chunks int) {
	o.source, o.chunks = source, chunks
}

func vectorsFor(texts []string, dim int) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dim)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out
}

func TestKnowledgeService_IngestText(t *testing.T) {
	store := &memoryKnowledge{}
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return(func(ctx context.Context, texts []string) [][]float32 {
		return vectorsFor(texts, 3)
	}, nil)
	obs := &recordingIngestObserver{}

	svc := NewKnowledgeService(store, embedder, nil).
		WithUUIDGen(&sequentialUUIDGenerator{}).
		WithObserver(obs)

	text := strings.Repeat("Water boils at one hundred degrees Celsius. ", 40)
	n, err := svc.IngestText(context.Background(), "physics.txt", text)
	require.NoError(t, err)

	expected := len(ChunkText(text, DefaultChunkConfig()))
	assert.Equal(t, expected, n)
	require.Len(t, store.chunks, expected)
	assert.Equal(t, "id-1", store.chunks[0].ID)
	assert.Equal(t, "physics.txt", store.chunks[0].Source)
	assert.Len(t, store.chunks[0].Embedding, 3)
	assert.Equal(t, "physics.txt", obs.source)
	assert.Equal(t, expected, obs.chunks)
}

func TestKnowledgeService_IngestTextBatches(t *testing.T) {
	store := &memoryKnowledge{}
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.MatchedBy(func(texts []string) bool { return len(texts) <= 2 })).
		Return(func(ctx context.Context, texts []string) [][]float32 {
			return vectorsFor(texts, 2)
		}, nil)

	svc := NewKnowledgeService(store, embedder, nil).
		WithChunkConfig(ChunkConfig{Size: 10, Overlap: 0, MinChars: 5}).
		WithBatchSize(2)

	n, err := svc.IngestText(context.Background(), "s", strings.Repeat("abcdefghij", 5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	embedder.AssertNumberOfCalls(t, "Embed", 3)
}

func TestKnowledgeService_IngestTextEmptyInput(t *testing.T) {
	embedder := new(MockEmbedder)
	svc := NewKnowledgeService(&memoryKnowledge{}, embedder, nil)

	n, err := svc.IngestText(context.Background(), "empty.txt", "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestKnowledgeService_IngestTextWithoutEmbedder(t *testing.T) {
	store := &memoryKnowledge{}
	svc := NewKnowledgeService(store, nil, nil)

	n, err := svc.IngestText(context.Background(), "notes.txt", "Keyword retrieval needs no vectors.")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, store.chunks[0].Embedding)
}

func TestKnowledgeService_IngestTextEmbedFailureStoresNothing(t *testing.T) {
	store := &memoryKnowledge{}
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := NewKnowledgeService(store, embedder, nil).IngestText(context.Background(), "s", "Some useful study text.")
	assert.True(t, domain.IsCode(err, domain.ErrCodeRemoteService))
	assert.Empty(t, store.chunks)
}

func TestKnowledgeService_IngestTextCountMismatch(t *testing.T) {
	store := &memoryKnowledge{}
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return([][]float32{}, nil)

	_, err := NewKnowledgeService(store, embedder, nil).IngestText(context.Background(), "s", "Some useful study text.")
	assert.True(t, domain.IsCode(err, domain.ErrCodeRemoteService))
	assert.Empty(t, store.chunks)
}

func TestKnowledgeService_IngestDocument(t *testing.T) {
	store := &memoryKnowledge{}
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)
	extractor := new(MockExtractor)
	extractor.On("IsSupported", "chapter1.pdf").Return(true)
	extractor.On("Extract", mock.Anything, "chapter1.pdf", "application/pdf", []byte("%PDF")).
		Return("Light travels in straight lines.", nil)

	svc := NewKnowledgeService(store, embedder, extractor)
	result, err := svc.IngestDocument(context.Background(), "uploads/chapter1.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "chapter1.pdf", result.Source)
	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, "Indexed 1 chunk(s) from chapter1.pdf", result.Message())
	extractor.AssertExpectations(t)
}

func TestKnowledgeService_IngestDocumentUnsupported(t *testing.T) {
	extractor := new(MockExtractor)
	extractor.On("IsSupported", "report.docx").Return(false)

	_, err := NewKnowledgeService(&memoryKnowledge{}, nil, extractor).
		IngestDocument(context.Background(), "report.docx", "", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestKnowledgeService_IngestDocumentExtractionFailureDegrades(t *testing.T) {
	extractor := new(MockExtractor)
	extractor.On("IsSupported", "empty.txt").Return(true)
	extractor.On("Extract", mock.Anything, "empty.txt", "", []byte{}).Return("", domain.ErrNoTextExtracted)

	result, err := NewKnowledgeService(&memoryKnowledge{}, nil, extractor).
		IngestDocument(context.Background(), "empty.txt", "", []byte{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Indexed)
}

func TestKnowledgeService_IngestDocumentEmbeddingFailureDegrades(t *testing.T) {
	store := &memoryKnowledge{}
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, domain.NewRemoteServiceError("embedding failed", errors.New("503")))
	extractor := new(MockExtractor)
	extractor.On("IsSupported", "a.txt").Return(true)
	extractor.On("Extract", mock.Anything, "a.txt", "text/plain", mock.Anything).Return("Some useful study text.", nil)

	result, err := NewKnowledgeService(store, embedder, extractor).
		IngestDocument(context.Background(), "a.txt", "text/plain", []byte("Some useful study text."))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Indexed)
	assert.Empty(t, store.chunks)
}

func TestKnowledgeService_IngestDocumentStoreFailure(t *testing.T) {
	store := &memoryKnowledge{appendErr: domain.NewInternalError("failed to persist knowledge store", errors.New("disk full"))}
	extractor := new(MockExtractor)
	extractor.On("IsSupported", "a.txt").Return(true)
	extractor.On("Extract", mock.Anything, "a.txt", "", mock.Anything).Return("Some useful study text.", nil)

	_, err := NewKnowledgeService(store, nil, extractor).IngestDocument(context.Background(), "a.txt", "", []byte("x"))
	assert.True(t, domain.IsCode(err, domain.ErrCodeInternalError))
}

func TestKnowledgeService_IngestDocumentMissingName(t *testing.T) {
	_, err := NewKnowledgeService(&memoryKnowledge{}, nil, new(MockExtractor)).
		IngestDocument(context.Background(), "  ", "", nil)
	assert.ErrorIs(t, err, domain.ErrMissingFile)
}

func TestKnowledgeService_StatsAndReset(t *testing.T) {
	store := &memoryKnowledge{chunks: []domain.Chunk{
		{ID: "1", Source: "a.pdf", Embedding: []float32{1, 2}},
		{ID: "2", Source: "b.pdf", Embedding: []float32{1, 2}},
	}}
	svc := NewKnowledgeService(store, nil, nil)

	stats := svc.Stats(context.Background())
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 2, stats.Dimension)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, stats.Sources)

	require.NoError(t, svc.Reset(context.Background()))
	assert.Equal(t, 0, svc.Stats(context.Background()).Chunks)
}
