package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newChunk(id, source string, emb ...float32) domain.Chunk {
	return domain.Chunk{ID: id, Source: source, Text: "text " + id, Embedding: emb}
}

func TestOpenKnowledgeStore_MissingSnapshot(t *testing.T) {
	store, err := OpenKnowledgeStore(context.Background(), storage.NewMemoryBackend(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, store.Dimension())
	assert.NotNil(t, store.All())
}

func TestOpenKnowledgeStore_CorruptSnapshot(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), DefaultKnowledgeKey, []byte("{not json")))

	store, err := OpenKnowledgeStore(context.Background(), backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestOpenKnowledgeStore_BackendError(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Load", mock.Anything, DefaultKnowledgeKey).Return(nil, errors.New("access denied"))

	_, err := OpenKnowledgeStore(context.Background(), backend, DefaultKnowledgeKey, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestKnowledgeStore_AppendPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	store, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, []domain.Chunk{
		newChunk("1", "a.pdf", 1, 0),
		newChunk("2", "b.txt", 0, 1),
	}))
	require.NoError(t, store.Append(ctx, []domain.Chunk{newChunk("3", "a.pdf", 1, 1)}))

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 2, store.Dimension())
	assert.Equal(t, []string{"a.pdf", "b.txt"}, store.Sources())

	raw, err := backend.Load(ctx, DefaultKnowledgeKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {", "snapshot is indented")

	var onDisk []map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Len(t, onDisk, 3)
	assert.Equal(t, "a.pdf", onDisk[0]["source"])
	assert.Contains(t, onDisk[0], "embedding")

	reloaded, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)
	all := reloaded.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestKnowledgeStore_AppendDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	store, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, []domain.Chunk{newChunk("1", "a", 1, 2, 3)}))
	saves := backend.Saves()

	err = store.Append(ctx, []domain.Chunk{newChunk("2", "a", 1, 2)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	err = store.Append(ctx, []domain.Chunk{newChunk("3", "a", 1, 2, 3), newChunk("4", "a", 1)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, saves, backend.Saves(), "nothing written on mismatch")
}

func TestKnowledgeStore_AppendSaveFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := new(MockBackend)
	backend.On("Load", mock.Anything, DefaultKnowledgeKey).Return(nil, storage.ErrNotFound)
	backend.On("Save", mock.Anything, DefaultKnowledgeKey, mock.Anything).Return(errors.New("disk full"))

	store, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)

	err = store.Append(ctx, []domain.Chunk{newChunk("1", "a", 1)})
	assert.True(t, domain.IsCode(err, domain.ErrCodeInternalError))
	assert.Equal(t, 0, store.Len())
	backend.AssertExpectations(t)
}

func TestKnowledgeStore_AllSnapshotUnaffectedByAppend(t *testing.T) {
	ctx := context.Background()
	store, err := OpenKnowledgeStore(ctx, storage.NewMemoryBackend(), DefaultKnowledgeKey, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, []domain.Chunk{newChunk("1", "a", 1)}))

	snapshot := store.All()
	require.NoError(t, store.Append(ctx, []domain.Chunk{newChunk("2", "a", 1)}))

	assert.Len(t, snapshot, 1)
	assert.Len(t, store.All(), 2)
}

func TestKnowledgeStore_Reset(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	store, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, []domain.Chunk{newChunk("1", "a", 1)}))

	require.NoError(t, store.Reset(ctx))
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Append(ctx, []domain.Chunk{newChunk("2", "a", 1, 2)}), "new dimension allowed after reset")
	assert.Equal(t, 2, store.Dimension())
}

func TestKnowledgeStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	store, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, []domain.Chunk{newChunk(string(rune('a'+i)), "src", 1)}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())

	reloaded, err := OpenKnowledgeStore(ctx, backend, DefaultKnowledgeKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.Len(), "last snapshot contains every append")
}
