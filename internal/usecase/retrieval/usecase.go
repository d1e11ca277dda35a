// Package retrieval ranks corpus chunks for a query.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Hybrid blend weights. They are fixed ranking policy.
const (
	VectorWeight = 0.7
	TextWeight   = 0.3
)

const (
	// FallbackTextLimit caps the lexical search run when vector search is empty.
	FallbackTextLimit = 3

	// lexicalCandidateFactor sizes the lexical side of the hybrid join.
	lexicalCandidateFactor = 4
)

type Retriever struct {
	searcher ChunkSearcher
}

func NewRetriever(searcher ChunkSearcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// Ping reports whether the search backend is reachable.
func (r *Retriever) Ping(ctx context.Context) error {
	if err := r.searcher.Ping(ctx); err != nil {
		return &entity.ConnectivityError{Backend: "search", Err: err}
	}
	return nil
}

// Retrieve returns at most maxCount chunks with similarity above threshold,
// optionally limited to one chapter.
func (r *Retriever) Retrieve(ctx context.Context, embedding []float32, threshold float64, maxCount int, chapter *string) (*entity.RetrievalResult, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: max count must be positive, got %d", entity.ErrInvalidParameter, maxCount)
	}

	mode := entity.RetrievalModeVector
	if chapter != nil {
		mode = entity.RetrievalModeChapter
	}

	chunks, err := r.vectorCandidates(ctx, embedding, threshold, maxCount, chapter)
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		chunks[i].Score = chunks[i].Similarity
	}
	return finalize(mode, chunks, maxCount), nil
}

// RetrieveByChapter is Retrieve restricted to the chapter with the given title.
func (r *Retriever) RetrieveByChapter(ctx context.Context, embedding []float32, chapter string, threshold float64, maxCount int) (*entity.RetrievalResult, error) {
	return r.Retrieve(ctx, embedding, threshold, maxCount, &chapter)
}

// HybridRetrieve blends vector similarity with lexical rank as
// VectorWeight*similarity + TextWeight*textRank. Only the top maxCount
// vector hits are blended; a chunk without a lexical hit gets textRank 0.
// Both searches run concurrently.
func (r *Retriever) HybridRetrieve(ctx context.Context, queryText string, embedding []float32, threshold float64, maxCount int) (*entity.RetrievalResult, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: max count must be positive, got %d", entity.ErrInvalidParameter, maxCount)
	}

	var vectorHits, textHits []entity.ScoredChunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorHits, err = r.vectorCandidates(gctx, embedding, threshold, maxCount, nil)
		return err
	})
	g.Go(func() error {
		hits, err := r.searcher.SearchByText(gctx, queryText, maxCount*lexicalCandidateFactor)
		if err != nil {
			// the blend degrades to pure similarity
			ctxzap.Warn(ctx, "lexical search failed, blending without text rank", zap.Error(err))
			return nil
		}
		textHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Blend(vectorHits, textHits, maxCount), nil
}

// Blend joins lexical ranks onto the vector hits by chunk id and orders by
// the blended score.
func Blend(vectorHits, textHits []entity.ScoredChunk, maxCount int) *entity.RetrievalResult {
	ranks := make(map[string]float64, len(textHits))
	for _, h := range textHits {
		ranks[h.Chunk.ID] = clamp01(h.TextRank)
	}

	blended := make([]entity.ScoredChunk, 0, len(vectorHits))
	for _, h := range vectorHits {
		h.TextRank = ranks[h.Chunk.ID]
		h.Score = VectorWeight*h.Similarity + TextWeight*h.TextRank
		blended = append(blended, h)
	}

	return finalize(entity.RetrievalModeHybrid, blended, maxCount)
}

// TextSearch runs a plain lexical search.
func (r *Retriever) TextSearch(ctx context.Context, queryText string, limit int) (*entity.RetrievalResult, error) {
	hits, err := r.searcher.SearchByText(ctx, queryText, limit)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	for i := range hits {
		hits[i].TextRank = clamp01(hits[i].TextRank)
		hits[i].Score = hits[i].TextRank
	}
	return finalize(entity.RetrievalModeLexical, hits, limit), nil
}

// Search runs the primary strategy for cfg and, when it finds nothing,
// a single lexical search capped at FallbackTextLimit. An empty result
// means there is no evidence for the query.
func (r *Retriever) Search(ctx context.Context, queryText string, embedding []float32, cfg entity.RAGConfig) (*entity.RetrievalResult, error) {
	var (
		result *entity.RetrievalResult
		err    error
	)
	if cfg.UseHybrid {
		result, err = r.HybridRetrieve(ctx, queryText, embedding, cfg.SimilarityThreshold, cfg.MaxDocuments)
	} else {
		result, err = r.Retrieve(ctx, embedding, cfg.SimilarityThreshold, cfg.MaxDocuments, nil)
	}
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "retrieval finished",
		zap.String("mode", string(result.Mode)),
		zap.Int("results", result.Len()),
		zap.Float64("threshold", cfg.SimilarityThreshold),
		zap.Int("max_documents", cfg.MaxDocuments),
	)

	if !result.IsEmpty() {
		return result, nil
	}

	ctxzap.Info(ctx, "vector search found nothing, trying text search")
	lexical, err := r.TextSearch(ctx, queryText, FallbackTextLimit)
	if err != nil {
		ctxzap.Warn(ctx, "fallback text search failed", zap.Error(err))
		return &entity.RetrievalResult{Mode: entity.RetrievalModeLexical}, nil
	}
	return lexical, nil
}

// ChapterChunks lists a chapter in reading order.
func (r *Retriever) ChapterChunks(ctx context.Context, chapter string) ([]entity.Chunk, error) {
	chunks, err := r.searcher.ChunksByChapter(ctx, chapter)
	if err != nil {
		return nil, fmt.Errorf("chunks by chapter: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrChapterNotFound, chapter)
	}
	return chunks, nil
}

// vectorCandidates queries the backend and re-applies the threshold and
// ordering so every backend yields the same contract.
func (r *Retriever) vectorCandidates(ctx context.Context, embedding []float32, threshold float64, limit int, chapter *string) ([]entity.ScoredChunk, error) {
	hits, err := r.searcher.SearchByVector(ctx, entity.VectorQuery{
		Embedding: embedding,
		Threshold: threshold,
		Limit:     limit,
		Chapter:   chapter,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := hits[:0]
	for _, h := range hits {
		if h.Similarity <= threshold {
			continue
		}
		if chapter != nil && h.Chunk.ChapterTitle != *chapter {
			continue
		}
		h.Similarity = clamp01(h.Similarity)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// finalize orders by Score, caps the set and numbers ranks from 1.
func finalize(mode entity.RetrievalMode, chunks []entity.ScoredChunk, maxCount int) *entity.RetrievalResult {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if maxCount > 0 && len(chunks) > maxCount {
		chunks = chunks[:maxCount]
	}
	for i := range chunks {
		chunks[i].Rank = i + 1
	}
	return &entity.RetrievalResult{Mode: mode, Chunks: chunks}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
