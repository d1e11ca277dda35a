package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/formatter"
	"github.com/futig/nelson-backend/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	DefaultTitle     = "New conversation"
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Export is a rendered transcript ready to be sent to a client
type Export struct {
	Content     []byte
	ContentType string
	Filename    string
}

// SessionUsecase implements chat session management
type SessionUsecase struct {
	sessionRepo repository.SessionRepository
	formatters  FormatterFactory
	corpus      entity.Corpus
	now         func() time.Time
}

// NewUsecase creates a new session use case
func NewUsecase(
	sessionRepo repository.SessionRepository,
	formatters FormatterFactory,
	corpus entity.Corpus,
) *SessionUsecase {
	return &SessionUsecase{
		sessionRepo: sessionRepo,
		formatters:  formatters,
		corpus:      corpus,
		now:         time.Now,
	}
}

// CreateSession starts an empty conversation
func (uc *SessionUsecase) CreateSession(ctx context.Context, title string) (*entity.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	session, err := uc.sessionRepo.CreateSession(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	ctxzap.Info(ctx, "session created", zap.String("session_id", session.ID))
	return session, nil
}

func (uc *SessionUsecase) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	session, err := uc.sessionRepo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns sessions by most recent activity. Non-positive
// limits fall back to DefaultListLimit.
func (uc *SessionUsecase) ListSessions(ctx context.Context, limit, offset int) ([]*entity.Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	sessions, err := uc.sessionRepo.ListSessions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*entity.Session{}
	}
	return sessions, nil
}

func (uc *SessionUsecase) GetMessages(ctx context.Context, sessionID string) ([]*entity.Message, error) {
	msgs, err := uc.sessionRepo.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	if msgs == nil {
		msgs = []*entity.Message{}
	}
	return msgs, nil
}

func (uc *SessionUsecase) DeleteSession(ctx context.Context, sessionID string) error {
	if err := uc.sessionRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	ctxzap.Info(ctx, "session deleted", zap.String("session_id", sessionID))
	return nil
}

// ExportTranscript renders the whole conversation in the requested format
func (uc *SessionUsecase) ExportTranscript(ctx context.Context, sessionID string, format entity.ResultFormat) (*Export, error) {
	fmtr, err := uc.formatters.Create(format)
	if err != nil {
		return nil, err
	}

	session, err := uc.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	msgs, err := uc.sessionRepo.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	content, err := fmtr.Format(&formatter.Transcript{
		Session:    session,
		Messages:   msgs,
		Corpus:     uc.corpus,
		ExportedAt: uc.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("format transcript: %w", err)
	}

	ctxzap.Info(ctx, "transcript exported",
		zap.String("session_id", sessionID),
		zap.String("format", string(format)),
		zap.Int("messages", len(msgs)),
		zap.Int("bytes", len(content)),
	)

	return &Export{
		Content:     content,
		ContentType: fmtr.ContentType(),
		Filename:    fmt.Sprintf("conversation-%s%s", sessionID, fmtr.FileExtension()),
	}, nil
}
