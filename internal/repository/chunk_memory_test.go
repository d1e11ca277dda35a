package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/textproc"
	"github.com/futig/nelson-backend/internal/pkg/vector"
)

func ptr[T any](v T) *T { return &v }

func testChunks() []entity.Chunk {
	return []entity.Chunk{
		{
			ID:           "kd-1",
			Content:      "Kawasaki disease is an acute vasculitis of childhood that affects the coronary arteries.",
			ChapterTitle: "Kawasaki Disease",
			SectionTitle: ptr("Etiology"),
			ChunkIndex:   ptr(1),
			Embedding:    []float32{1, 0, 0},
		},
		{
			ID:           "kd-0",
			Content:      "Treatment of Kawasaki disease uses intravenous immunoglobulin and aspirin.",
			ChapterTitle: "Kawasaki Disease",
			SectionTitle: ptr("Treatment"),
			ChunkIndex:   ptr(0),
			Embedding:    []float32{0.8, 0.6, 0},
		},
		{
			ID:           "rsv-0",
			Content:      "Respiratory syncytial virus causes bronchiolitis in infants.",
			ChapterTitle: "Bronchiolitis",
			ChunkIndex:   ptr(0),
			Embedding:    []float32{0, 0, 1},
		},
		{
			ID:           "no-emb",
			Content:      "Aspirin dosing in Kawasaki disease is reduced after the fever resolves.",
			ChapterTitle: "Kawasaki Disease",
		},
	}
}

func newTestMemory(t *testing.T) *ChunkMemory {
	t.Helper()
	repo, err := NewChunkMemory(testChunks())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewChunkMemory(t *testing.T) {
	t.Run("rejects chunks without content", func(t *testing.T) {
		_, err := NewChunkMemory([]entity.Chunk{{ID: "a"}})
		assert.ErrorIs(t, err, entity.ErrMissingField)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewChunkMemory([]entity.Chunk{
			{ID: "a", Content: "one"},
			{ID: "a", Content: "two"},
		})
		assert.ErrorIs(t, err, entity.ErrInvalidParameter)
	})

	t.Run("indexes every chunk", func(t *testing.T) {
		repo := newTestMemory(t)
		assert.Equal(t, 4, repo.Len())
		assert.NoError(t, repo.Ping(context.Background()))
	})
}

func TestChunkMemory_SearchByVector(t *testing.T) {
	repo := newTestMemory(t)
	ctx := context.Background()

	t.Run("orders by similarity and applies threshold", func(t *testing.T) {
		hits, err := repo.SearchByVector(ctx, entity.VectorQuery{
			Embedding: []float32{1, 0, 0},
			Threshold: 0.5,
			Limit:     10,
		})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "kd-1", hits[0].Chunk.ID)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
		assert.Equal(t, "kd-0", hits[1].Chunk.ID)
		assert.InDelta(t, 0.8, hits[1].Similarity, 1e-6)
	})

	t.Run("threshold is exclusive", func(t *testing.T) {
		hits, err := repo.SearchByVector(ctx, entity.VectorQuery{
			Embedding: []float32{1, 0, 0},
			Threshold: 1.0,
			Limit:     10,
		})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("caps at limit", func(t *testing.T) {
		hits, err := repo.SearchByVector(ctx, entity.VectorQuery{
			Embedding: []float32{1, 0, 0},
			Threshold: 0,
			Limit:     1,
		})
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("filters by chapter", func(t *testing.T) {
		hits, err := repo.SearchByVector(ctx, entity.VectorQuery{
			Embedding: []float32{0.5, 0.5, 0.5},
			Threshold: 0,
			Limit:     10,
			Chapter:   ptr("Bronchiolitis"),
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "rsv-0", hits[0].Chunk.ID)
	})

	t.Run("skips chunks of another dimension", func(t *testing.T) {
		hits, err := repo.SearchByVector(ctx, entity.VectorQuery{
			Embedding: []float32{1, 0},
			Threshold: -1,
			Limit:     10,
		})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestChunkMemory_SearchByText(t *testing.T) {
	repo := newTestMemory(t)
	ctx := context.Background()

	t.Run("ranks matches into the unit interval", func(t *testing.T) {
		hits, err := repo.SearchByText(ctx, "aspirin", 10)
		require.NoError(t, err)
		require.Len(t, hits, 2)

		assert.InDelta(t, 1.0, hits[0].TextRank, 1e-9)
		for _, h := range hits {
			assert.Greater(t, h.TextRank, 0.0)
			assert.LessOrEqual(t, h.TextRank, 1.0)
			assert.Contains(t, h.Chunk.Content, "spirin")
		}
	})

	t.Run("stems english terms", func(t *testing.T) {
		hits, err := repo.SearchByText(ctx, "infant", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "rsv-0", hits[0].Chunk.ID)
	})

	t.Run("no match", func(t *testing.T) {
		hits, err := repo.SearchByText(ctx, "asdgivjaer", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("respects limit", func(t *testing.T) {
		hits, err := repo.SearchByText(ctx, "kawasaki", 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})
}

func TestChunkMemory_ChunksByChapter(t *testing.T) {
	repo := newTestMemory(t)

	chunks, err := repo.ChunksByChapter(context.Background(), "Kawasaki Disease")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "kd-0", chunks[0].ID)
	assert.Equal(t, "kd-1", chunks[1].ID)
	assert.Equal(t, "no-emb", chunks[2].ID, "chunks without index go last")

	none, err := repo.ChunksByChapter(context.Background(), "Unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// hashEmbedder embeds with the deterministic hash vectorizer.
type hashEmbedder struct {
	dim   int
	calls int
}

func (h *hashEmbedder) EmbedBatch(_ context.Context, texts []string) []entity.Embedding {
	h.calls++
	out := make([]entity.Embedding, len(texts))
	for i, t := range texts {
		out[i] = entity.Embedding{Vector: vector.HashEmbed(t, h.dim), Model: "hash"}
	}
	return out
}

func (h *hashEmbedder) Dimension() int { return h.dim }

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"chunks": [
			{"id": "pre-0", "content": "Prepared chunk about fever.", "chapter_title": "Fever", "chunk_index": 0,
			 "embedding": [0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6]}
		],
		"chapters": [
			{"title": "Fever", "section": "Evaluation", "page": 1345,
			 "text": "Fever   is a common complaint.  Most fevers are caused by self limited viral infections."}
		]
	}`), 0o600))

	file, err := ReadCorpusFile(path)
	require.NoError(t, err)

	embedder := &hashEmbedder{dim: 16}
	chunks, err := LoadCorpus(context.Background(), file, textproc.NewChunker(), embedder)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "pre-0", chunks[0].ID)
	assert.InDelta(t, 0.1, chunks[0].Embedding[0], 1e-6, "prepared embeddings are kept")

	raw := chunks[1]
	assert.Equal(t, "Fever", raw.ChapterTitle)
	assert.Equal(t, "Evaluation", raw.Section())
	require.NotNil(t, raw.ChunkIndex)
	assert.Equal(t, 1, *raw.ChunkIndex, "indexes continue after prepared chunks")
	require.NotNil(t, raw.PageNumber)
	assert.Equal(t, 1345, *raw.PageNumber)
	assert.Equal(t, "Fever is a common complaint. Most fevers are caused by self limited viral infections.", raw.Content)
	assert.Len(t, raw.Embedding, 16)
	assert.Equal(t, 1, embedder.calls)

	repo, err := NewChunkMemory(chunks)
	require.NoError(t, err)
	defer repo.Close()

	hits, err := repo.SearchByVector(context.Background(), entity.VectorQuery{
		Embedding: vector.HashEmbed(raw.Content, 16),
		Threshold: 0.99,
		Limit:     1,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, raw.ID, hits[0].Chunk.ID)
}

func TestReadCorpusFile_Errors(t *testing.T) {
	_, err := ReadCorpusFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = ReadCorpusFile(path)
	assert.Error(t, err)
}
