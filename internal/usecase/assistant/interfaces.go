package assistant

import (
	"context"

	"github.com/futig/nelson-backend/internal/entity"
)

type Embedder interface {
	Embed(ctx context.Context, text string) entity.Embedding
}

type Retriever interface {
	Ping(ctx context.Context) error
	Search(ctx context.Context, queryText string, embedding []float32, cfg entity.RAGConfig) (*entity.RetrievalResult, error)
}

type Generator interface {
	Generate(ctx context.Context, query string, chunks []entity.ScoredChunk, history []entity.Turn, cfg entity.RAGConfig) (*entity.GeneratedAnswer, error)
	GenerateStream(ctx context.Context, query string, chunks []entity.ScoredChunk, history []entity.Turn, cfg entity.RAGConfig, onDelta func(string) error) (*entity.GeneratedAnswer, error)
}

// SessionStore is the chat history store. Writes are best effort.
type SessionStore interface {
	AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Message, error)
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error)
}
