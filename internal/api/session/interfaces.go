package session

import (
	"context"

	"github.com/futig/nelson-backend/internal/entity"
	sessionuc "github.com/futig/nelson-backend/internal/usecase/session"
)

type SessionUsecase interface {
	CreateSession(ctx context.Context, title string) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*entity.Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]*entity.Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ExportTranscript(ctx context.Context, sessionID string, format entity.ResultFormat) (*sessionuc.Export, error)
}

type RequestValidator interface {
	ValidateCreateSession(req *entity.CreateSessionRequest) error
	ValidateSessionID(id string) error
	ValidateExportFormat(format entity.ResultFormat) error
}
