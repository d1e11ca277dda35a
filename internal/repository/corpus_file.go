package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/textproc"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CorpusFile is the on-disk corpus used by the local search backend. It
// holds prepared chunks, raw chapter text to be chunked at load time, or both.
type CorpusFile struct {
	Chunks   []entity.Chunk  `json:"chunks"`
	Chapters []CorpusChapter `json:"chapters"`
}

type CorpusChapter struct {
	Title   string `json:"title"`
	Section string `json:"section,omitempty"`
	Page    *int   `json:"page,omitempty"`
	Text    string `json:"text"`
}

// CorpusEmbedder embeds chunk content at load time.
type CorpusEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) []entity.Embedding
	Dimension() int
}

func ReadCorpusFile(path string) (*CorpusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var file CorpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode corpus file %s: %w", path, err)
	}
	return &file, nil
}

// LoadCorpus turns a corpus file into chunks ready for ChunkMemory. Raw
// chapters are chunked, chunk indexes continue across sections of the
// same chapter, and chunks without a usable embedding are embedded.
func LoadCorpus(ctx context.Context, file *CorpusFile, chunker *textproc.Chunker, embedder CorpusEmbedder) ([]entity.Chunk, error) {
	chunks := make([]entity.Chunk, 0, len(file.Chunks))
	nextIndex := make(map[string]int)

	for _, c := range file.Chunks {
		if c.ChunkIndex != nil && *c.ChunkIndex >= nextIndex[c.ChapterTitle] {
			nextIndex[c.ChapterTitle] = *c.ChunkIndex + 1
		}
		chunks = append(chunks, c)
	}

	for _, ch := range file.Chapters {
		if ch.Title == "" {
			return nil, fmt.Errorf("%w: chapter title", entity.ErrMissingField)
		}
		for _, c := range chunker.ChunkChapter(ch.Title, ch.Section, ch.Text) {
			idx := nextIndex[ch.Title]
			nextIndex[ch.Title]++
			c.ChunkIndex = &idx
			if ch.Page != nil {
				page := *ch.Page
				c.PageNumber = &page
			}
			chunks = append(chunks, c)
		}
	}

	var (
		missing []int
		texts   []string
	)
	dim := embedder.Dimension()
	for i := range chunks {
		if len(chunks[i].Embedding) == dim {
			continue
		}
		if len(chunks[i].Embedding) != 0 {
			ctxzap.Warn(ctx, "re-embedding chunk with unexpected dimension",
				zap.String("chunk_id", chunks[i].ID),
				zap.Int("dimension", len(chunks[i].Embedding)),
				zap.Int("expected", dim),
			)
		}
		missing = append(missing, i)
		texts = append(texts, chunks[i].Content)
	}

	if len(texts) > 0 {
		ctxzap.Info(ctx, "embedding corpus chunks", zap.Int("chunks", len(texts)))
		embeddings := embedder.EmbedBatch(ctx, texts)
		for j, i := range missing {
			chunks[i].Embedding = embeddings[j].Vector
		}
	}

	return chunks, nil
}
