package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/nelson-backend/internal/entity"
)

func scored(id, chapter string, similarity, textRank float64) entity.ScoredChunk {
	return entity.ScoredChunk{
		Chunk:      entity.Chunk{ID: id, Content: "content " + id, ChapterTitle: chapter},
		Similarity: similarity,
		TextRank:   textRank,
	}
}

func ids(r *entity.RetrievalResult) []string {
	out := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		out = append(out, c.Chunk.ID)
	}
	return out
}

func TestBlend(t *testing.T) {
	vectorHits := []entity.ScoredChunk{
		scored("only-vector", "A", 0.9, 0),
		scored("both", "A", 0.8, 0),
	}
	textHits := []entity.ScoredChunk{
		scored("both", "A", 0, 0.5),
		scored("only-text", "B", 0, 1.0),
	}

	result := Blend(vectorHits, textHits, 5)

	assert.Equal(t, entity.RetrievalModeHybrid, result.Mode)
	require.Equal(t, []string{"both", "only-vector"}, ids(result), "lexical-only hits are dropped")
	assert.InDelta(t, 0.71, result.Chunks[0].Score, 1e-9)
	assert.InDelta(t, 0.5, result.Chunks[0].TextRank, 1e-9)
	assert.InDelta(t, 0.63, result.Chunks[1].Score, 1e-9)
	assert.Zero(t, result.Chunks[1].TextRank)
	assert.Equal(t, 1, result.Chunks[0].Rank)
	assert.Equal(t, 2, result.Chunks[1].Rank)
}

func TestBlend_ClampsTextRank(t *testing.T) {
	result := Blend(
		[]entity.ScoredChunk{scored("a", "A", 1.0, 0)},
		[]entity.ScoredChunk{scored("a", "A", 0, 7.5)},
		1,
	)
	assert.InDelta(t, 1.0, result.Chunks[0].Score, 1e-9)
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("filters, orders and caps", func(t *testing.T) {
		searcher := &mockSearcher{vectorHits: []entity.ScoredChunk{
			scored("low", "A", 0.5, 0),
			scored("mid", "A", 0.75, 0),
			scored("top", "A", 0.95, 0),
			scored("at-threshold", "A", 0.7, 0),
		}}
		r := NewRetriever(searcher)

		result, err := r.Retrieve(ctx, []float32{1}, 0.7, 5, nil)
		require.NoError(t, err)
		assert.Equal(t, entity.RetrievalModeVector, result.Mode)
		assert.Equal(t, []string{"top", "mid"}, ids(result), "threshold is exclusive")
		assert.InDelta(t, 0.95, result.Chunks[0].Score, 1e-9)

		capped, err := r.Retrieve(ctx, []float32{1}, 0.0, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"top"}, ids(capped))
	})

	t.Run("rejects non positive max count", func(t *testing.T) {
		r := NewRetriever(&mockSearcher{})
		_, err := r.Retrieve(ctx, []float32{1}, 0.7, 0, nil)
		assert.ErrorIs(t, err, entity.ErrInvalidParameter)
	})

	t.Run("chapter restriction", func(t *testing.T) {
		searcher := &mockSearcher{vectorHits: []entity.ScoredChunk{
			scored("kd", "Kawasaki Disease", 0.9, 0),
			scored("other", "Croup", 0.95, 0),
		}}
		r := NewRetriever(searcher)

		result, err := r.RetrieveByChapter(ctx, []float32{1}, "Kawasaki Disease", 0.5, 5)
		require.NoError(t, err)
		assert.Equal(t, entity.RetrievalModeChapter, result.Mode)
		assert.Equal(t, []string{"kd"}, ids(result))
		require.NotNil(t, searcher.lastQuery().Chapter)
		assert.Equal(t, "Kawasaki Disease", *searcher.lastQuery().Chapter)
	})

	t.Run("backend error", func(t *testing.T) {
		r := NewRetriever(&mockSearcher{vectorErr: errors.New("down")})
		_, err := r.Retrieve(ctx, []float32{1}, 0.5, 5, nil)
		assert.Error(t, err)
	})
}

func TestRetriever_HybridRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("blends lexical rank onto vector hits", func(t *testing.T) {
		searcher := &mockSearcher{
			vectorHits: []entity.ScoredChunk{scored("a", "A", 0.9, 0), scored("b", "A", 0.8, 0)},
			textHits:   []entity.ScoredChunk{scored("b", "A", 0, 0.5)},
		}
		r := NewRetriever(searcher)

		result, err := r.HybridRetrieve(ctx, "kawasaki", []float32{1}, 0.7, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, ids(result))
		assert.Equal(t, 3, searcher.lastQuery().Limit)
		assert.Equal(t, 12, searcher.lastTextLimit())
	})

	t.Run("chunks outside the vector cap are not blended", func(t *testing.T) {
		searcher := &mockSearcher{
			vectorHits: []entity.ScoredChunk{scored("a", "A", 0.9, 0), scored("b", "A", 0.85, 0)},
			textHits:   []entity.ScoredChunk{scored("b", "A", 0, 1.0)},
		}
		r := NewRetriever(searcher)

		result, err := r.HybridRetrieve(ctx, "kawasaki", []float32{1}, 0.5, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(result))
		assert.InDelta(t, 0.63, result.Chunks[0].Score, 1e-9)
		assert.Equal(t, 1, searcher.lastQuery().Limit)
	})

	t.Run("lexical failure degrades to similarity", func(t *testing.T) {
		searcher := &mockSearcher{
			vectorHits: []entity.ScoredChunk{scored("a", "A", 0.9, 0)},
			textErr:    errors.New("no index"),
		}
		r := NewRetriever(searcher)

		result, err := r.HybridRetrieve(ctx, "q", []float32{1}, 0.5, 3)
		require.NoError(t, err)
		require.Len(t, result.Chunks, 1)
		assert.InDelta(t, 0.63, result.Chunks[0].Score, 1e-9)
	})

	t.Run("vector failure fails the call", func(t *testing.T) {
		r := NewRetriever(&mockSearcher{vectorErr: errors.New("down")})
		_, err := r.HybridRetrieve(ctx, "q", []float32{1}, 0.5, 3)
		assert.Error(t, err)
	})
}

func TestRetriever_Search(t *testing.T) {
	ctx := context.Background()
	cfg := entity.RAGConfig{MaxDocuments: 5, SimilarityThreshold: 0.7, UseHybrid: true}

	t.Run("primary strategy wins", func(t *testing.T) {
		searcher := &mockSearcher{vectorHits: []entity.ScoredChunk{scored("a", "A", 0.9, 0)}}
		result, err := NewRetriever(searcher).Search(ctx, "q", []float32{1}, cfg)
		require.NoError(t, err)
		assert.Equal(t, entity.RetrievalModeHybrid, result.Mode)
	})

	t.Run("vector only", func(t *testing.T) {
		searcher := &mockSearcher{vectorHits: []entity.ScoredChunk{scored("a", "A", 0.9, 0)}}
		noHybrid := cfg
		noHybrid.UseHybrid = false
		result, err := NewRetriever(searcher).Search(ctx, "q", []float32{1}, noHybrid)
		require.NoError(t, err)
		assert.Equal(t, entity.RetrievalModeVector, result.Mode)
		assert.Zero(t, searcher.textCalls())
	})

	t.Run("empty vector result falls back to text", func(t *testing.T) {
		searcher := &mockSearcher{textHits: []entity.ScoredChunk{
			scored("t1", "A", 0, 1.0),
			scored("t2", "A", 0, 0.6),
			scored("t3", "A", 0, 0.4),
			scored("t4", "A", 0, 0.2),
		}}
		noHybrid := cfg
		noHybrid.UseHybrid = false

		result, err := NewRetriever(searcher).Search(ctx, "q", []float32{1}, noHybrid)
		require.NoError(t, err)
		assert.Equal(t, entity.RetrievalModeLexical, result.Mode)
		assert.Equal(t, []string{"t1", "t2", "t3"}, ids(result))
		assert.Equal(t, FallbackTextLimit, searcher.lastTextLimit())
		assert.InDelta(t, 1.0, result.Chunks[0].Score, 1e-9)
	})

	t.Run("nothing anywhere is an empty result", func(t *testing.T) {
		result, err := NewRetriever(&mockSearcher{}).Search(ctx, "q", []float32{1}, cfg)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
	})

	t.Run("fallback failure is an empty lexical result", func(t *testing.T) {
		searcher := &mockSearcher{textErr: errors.New("no index")}
		noHybrid := cfg
		noHybrid.UseHybrid = false
		result, err := NewRetriever(searcher).Search(ctx, "q", []float32{1}, noHybrid)
		require.NoError(t, err)
		assert.Equal(t, entity.RetrievalModeLexical, result.Mode)
		assert.True(t, result.IsEmpty())
	})
}

func TestRetriever_ChapterChunks(t *testing.T) {
	ctx := context.Background()
	searcher := &mockSearcher{chapter: []entity.Chunk{{ID: "c0"}, {ID: "c1"}}}
	r := NewRetriever(searcher)

	chunks, err := r.ChapterChunks(ctx, "Croup")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	_, err = NewRetriever(&mockSearcher{}).ChapterChunks(ctx, "Unknown")
	assert.ErrorIs(t, err, entity.ErrChapterNotFound)
}

func TestRetriever_Ping(t *testing.T) {
	err := NewRetriever(&mockSearcher{pingErr: errors.New("refused")}).Ping(context.Background())
	var connErr *entity.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "search", connErr.Backend)

	assert.NoError(t, NewRetriever(&mockSearcher{}).Ping(context.Background()))
}

// --- Mock implementations ---

type mockSearcher struct {
	mu         sync.Mutex
	vectorHits []entity.ScoredChunk
	textHits   []entity.ScoredChunk
	chapter    []entity.Chunk
	vectorErr  error
	textErr    error
	pingErr    error

	queries    []entity.VectorQuery
	textLimits []int
}

func (m *mockSearcher) SearchByVector(_ context.Context, q entity.VectorQuery) ([]entity.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	return append([]entity.ScoredChunk(nil), m.vectorHits...), nil
}

func (m *mockSearcher) SearchByText(_ context.Context, _ string, limit int) ([]entity.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textLimits = append(m.textLimits, limit)
	if m.textErr != nil {
		return nil, m.textErr
	}
	hits := append([]entity.ScoredChunk(nil), m.textHits...)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockSearcher) ChunksByChapter(_ context.Context, _ string) ([]entity.Chunk, error) {
	return m.chapter, nil
}

func (m *mockSearcher) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockSearcher) lastQuery() entity.VectorQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

func (m *mockSearcher) lastTextLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textLimits[len(m.textLimits)-1]
}

func (m *mockSearcher) textCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textLimits)
}
