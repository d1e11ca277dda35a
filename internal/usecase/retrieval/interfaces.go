package retrieval

import (
	"context"

	"github.com/futig/nelson-backend/internal/entity"
)

// ChunkSearcher is the vector/lexical search backend over the corpus.
type ChunkSearcher interface {
	// SearchByVector fills Similarity, ordered by descending similarity.
	SearchByVector(ctx context.Context, q entity.VectorQuery) ([]entity.ScoredChunk, error)
	// SearchByText fills TextRank, ordered by descending rank.
	SearchByText(ctx context.Context, query string, limit int) ([]entity.ScoredChunk, error)
	// ChunksByChapter returns a chapter's chunks ordered by chunk index.
	ChunksByChapter(ctx context.Context, chapter string) ([]entity.Chunk, error)
	Ping(ctx context.Context) error
}
