package repository

import (
	"context"
	"fmt"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository is the search backend over the corpus chunks.
type ChunkRepository interface {
	SearchByVector(ctx context.Context, q entity.VectorQuery) ([]entity.ScoredChunk, error)
	SearchByText(ctx context.Context, query string, limit int) ([]entity.ScoredChunk, error)
	ChunksByChapter(ctx context.Context, chapter string) ([]entity.Chunk, error)
	Ping(ctx context.Context) error
}

var _ ChunkRepository = &ChunkPostgres{}

const chunkColumns = `id, content, chapter_title, section_title, page_number, chunk_index, metadata`

// Similarity is 1 - cosine distance; ordering by distance keeps the
// hnsw index usable.
const searchByVectorQuery = `
SELECT ` + chunkColumns + `, 1 - (embedding <=> $1::vector) AS similarity
FROM chunks
WHERE embedding IS NOT NULL
  AND ($4::text IS NULL OR chapter_title = $4::text)
  AND 1 - (embedding <=> $1::vector) > $2
ORDER BY embedding <=> $1::vector
LIMIT $3`

// Normalization flag 32 maps the rank into [0, 1).
const searchByTextQuery = `
SELECT ` + chunkColumns + `, ts_rank(search_vector, plainto_tsquery('english', $1), 32) AS rank
FROM chunks
WHERE search_vector @@ plainto_tsquery('english', $1)
ORDER BY rank DESC
LIMIT $2`

const chunksByChapterQuery = `
SELECT ` + chunkColumns + `, 0::float8
FROM chunks
WHERE chapter_title = $1
ORDER BY chunk_index NULLS LAST, id`

// ChunkPostgres implements ChunkRepository on pgvector.
type ChunkPostgres struct {
	db *pgxpool.Pool
}

func NewChunkPostgres(db *pgxpool.Pool) *ChunkPostgres {
	return &ChunkPostgres{db: db}
}

func (r *ChunkPostgres) SearchByVector(ctx context.Context, q entity.VectorQuery) ([]entity.ScoredChunk, error) {
	rows, err := r.db.Query(ctx, searchByVectorQuery,
		pgvector.NewVector(q.Embedding),
		q.Threshold,
		q.Limit,
		q.Chapter,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks by vector: %w", err)
	}

	return collectScored(rows, func(sc *entity.ScoredChunk, score float64) {
		sc.Similarity = score
		sc.Score = score
	})
}

func (r *ChunkPostgres) SearchByText(ctx context.Context, query string, limit int) ([]entity.ScoredChunk, error) {
	rows, err := r.db.Query(ctx, searchByTextQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query chunks by text: %w", err)
	}

	return collectScored(rows, func(sc *entity.ScoredChunk, score float64) {
		sc.TextRank = score
		sc.Score = score
	})
}

func (r *ChunkPostgres) ChunksByChapter(ctx context.Context, chapter string) ([]entity.Chunk, error) {
	rows, err := r.db.Query(ctx, chunksByChapterQuery, chapter)
	if err != nil {
		return nil, fmt.Errorf("query chunks by chapter: %w", err)
	}

	scored, err := collectScored(rows, func(*entity.ScoredChunk, float64) {})
	if err != nil {
		return nil, err
	}

	chunks := make([]entity.Chunk, 0, len(scored))
	for _, sc := range scored {
		chunks = append(chunks, sc.Chunk)
	}
	return chunks, nil
}

func (r *ChunkPostgres) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping chunk store: %w", err)
	}
	return nil
}

func collectScored(rows pgx.Rows, setScore func(*entity.ScoredChunk, float64)) ([]entity.ScoredChunk, error) {
	defer rows.Close()

	var out []entity.ScoredChunk
	for rows.Next() {
		var row chunkRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		chunk, err := toEntityChunk(&row)
		if err != nil {
			return nil, err
		}

		sc := entity.ScoredChunk{Chunk: chunk}
		setScore(&sc, row.Score)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	return out, nil
}
