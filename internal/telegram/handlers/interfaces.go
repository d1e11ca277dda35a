package handlers

import (
	"context"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/usecase/session"
)

// AssistantUsecase answers questions as a stream of events
type AssistantUsecase interface {
	AskQuestionStreaming(ctx context.Context, req *entity.AskRequest) <-chan entity.StreamEvent
}

// SessionUsecase defines the session operations used by the bot
type SessionUsecase interface {
	CreateSession(ctx context.Context, title string) (*entity.Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]*entity.Message, error)
	ExportTranscript(ctx context.Context, sessionID string, format entity.ResultFormat) (*session.Export, error)
}
