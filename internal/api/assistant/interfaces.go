package assistant

import (
	"context"

	"github.com/futig/nelson-backend/internal/entity"
)

type AssistantUsecase interface {
	AskQuestion(ctx context.Context, req *entity.AskRequest) *entity.GeneratedAnswer
	AskQuestionStreaming(ctx context.Context, req *entity.AskRequest) <-chan entity.StreamEvent
}

type ChapterReader interface {
	ChapterChunks(ctx context.Context, chapter string) ([]entity.Chunk, error)
}

type RequestValidator interface {
	ValidateAskRequest(req *entity.AskRequest) error
}
