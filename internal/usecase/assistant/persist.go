package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// persistAsync stores the exchange in the background and returns answer
// untouched. Failures are logged and never reach the caller.
func (uc *AssistantUsecase) persistAsync(ctx context.Context, query string, answer *entity.GeneratedAnswer) *entity.GeneratedAnswer {
	sessionID := answer.SessionID
	if sessionID == "" || uc.sessions == nil {
		return answer
	}

	bg := logger.WithAction(logger.Detach(ctx), "persist_exchange")
	assistantMsg := assistantMessage(sessionID, answer)

	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				ctxzap.Warn(bg, "panic while persisting exchange", zap.Any("panic", r))
			}
		}()

		wctx, cancel := context.WithTimeout(bg, uc.persistTimeout)
		defer cancel()

		if err := uc.persist(wctx, sessionID, query, assistantMsg); err != nil {
			ctxzap.Warn(bg, "failed to persist exchange", zap.Error(err))
		}
	}()

	return answer
}

func (uc *AssistantUsecase) persist(ctx context.Context, sessionID, query string, assistantMsg *entity.Message) error {
	userMsg := &entity.Message{
		SessionID: sessionID,
		Role:      entity.RoleUser,
		Content:   query,
	}
	if err := uc.append(ctx, userMsg); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	if err := uc.append(ctx, assistantMsg); err != nil {
		return fmt.Errorf("append assistant message: %w", err)
	}
	return nil
}

func (uc *AssistantUsecase) append(ctx context.Context, msg *entity.Message) error {
	return uc.persistRetry.Do(ctx, func() error {
		_, err := uc.sessions.AppendMessage(ctx, msg)
		return err
	}, func(err error) bool {
		return !errors.Is(err, entity.ErrSessionNotFound) && !errors.Is(err, entity.ErrInvalidParameter)
	})
}

func assistantMessage(sessionID string, answer *entity.GeneratedAnswer) *entity.Message {
	confidence := answer.Confidence
	metadata := map[string]any{
		"outcome":             string(answer.Outcome),
		"retrieved_documents": len(answer.RetrievedDocuments),
		"processing_time_ms":  answer.ProcessingTime.Milliseconds(),
	}
	if answer.Model != "" {
		metadata["model"] = answer.Model
	}
	return &entity.Message{
		SessionID:  sessionID,
		Role:       entity.RoleAssistant,
		Content:    answer.Content,
		Citations:  answer.Citations,
		Confidence: &confidence,
		Metadata:   metadata,
	}
}
