package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/vector"
)

const indexBatchSize = 100

var _ ChunkRepository = &ChunkMemory{}

// ChunkMemory serves a corpus held in memory: cosine scan for vector search
// and a mem-only bleve index for lexical search.
type ChunkMemory struct {
	chunks []entity.Chunk
	ids    map[string]int
	index  bleve.Index
}

// NewChunkMemory indexes chunks. Chunks must have an id and content; ids
// must be unique.
func NewChunkMemory(chunks []entity.Chunk) (*ChunkMemory, error) {
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = en.AnalyzerName

	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("create text index: %w", err)
	}

	ids := make(map[string]int, len(chunks))
	batch := index.NewBatch()
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" || c.Content == "" {
			index.Close()
			return nil, fmt.Errorf("%w: chunk %d has no id or content", entity.ErrMissingField, i)
		}
		if _, dup := ids[c.ID]; dup {
			index.Close()
			return nil, fmt.Errorf("%w: duplicate chunk id %s", entity.ErrInvalidParameter, c.ID)
		}
		ids[c.ID] = i

		doc := map[string]any{
			"content": c.Content,
			"chapter": c.ChapterTitle,
			"section": c.Section(),
		}
		if err := batch.Index(c.ID, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("add chunk %s to batch: %w", c.ID, err)
		}

		if batch.Size() >= indexBatchSize {
			if err := index.Batch(batch); err != nil {
				index.Close()
				return nil, fmt.Errorf("index batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("index final batch: %w", err)
		}
	}

	return &ChunkMemory{
		chunks: chunks,
		ids:    ids,
		index:  index,
	}, nil
}

func (r *ChunkMemory) Len() int {
	return len(r.chunks)
}

// SearchByVector scans every chunk with an embedding. Chunks whose
// embedding dimension differs from the query are skipped.
func (r *ChunkMemory) SearchByVector(ctx context.Context, q entity.VectorQuery) ([]entity.ScoredChunk, error) {
	var hits []entity.ScoredChunk
	for i := range r.chunks {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		c := &r.chunks[i]
		if len(c.Embedding) == 0 {
			continue
		}
		if q.Chapter != nil && c.ChapterTitle != *q.Chapter {
			continue
		}

		sim, err := vector.CosineSimilarity(q.Embedding, c.Embedding)
		if err != nil {
			if errors.Is(err, entity.ErrDimensionMismatch) {
				continue
			}
			return nil, fmt.Errorf("score chunk %s: %w", c.ID, err)
		}
		if sim <= q.Threshold {
			continue
		}

		hits = append(hits, entity.ScoredChunk{Chunk: *c, Similarity: sim, Score: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// SearchByText runs a match query over chunk content. Ranks are bleve
// scores divided by the best score, so the top hit ranks 1.
func (r *ChunkMemory) SearchByText(ctx context.Context, query string, limit int) ([]entity.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(query)
	match.SetField("content")
	req := bleve.NewSearchRequestOptions(match, limit, 0, false)

	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("text index search: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}

	top := res.Hits[0].Score
	hits := make([]entity.ScoredChunk, 0, len(res.Hits))
	for _, h := range res.Hits {
		i, ok := r.ids[h.ID]
		if !ok {
			continue
		}
		c := &r.chunks[i]
		rank := 0.0
		if top > 0 {
			rank = h.Score / top
		}
		hits = append(hits, entity.ScoredChunk{Chunk: *c, TextRank: rank, Score: rank})
	}
	return hits, nil
}

func (r *ChunkMemory) ChunksByChapter(_ context.Context, chapter string) ([]entity.Chunk, error) {
	var out []entity.Chunk
	for _, c := range r.chunks {
		if c.ChapterTitle == chapter {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ChunkIndex, out[j].ChunkIndex
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out, nil
}

func (r *ChunkMemory) Ping(_ context.Context) error {
	if _, err := r.index.DocCount(); err != nil {
		return fmt.Errorf("text index unavailable: %w", err)
	}
	return nil
}

func (r *ChunkMemory) Close() error {
	return r.index.Close()
}
