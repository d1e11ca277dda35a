package handlers

import (
	"context"
	"errors"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// isUserError reports errors caused by the request rather than the service
func isUserError(err error) bool {
	return errors.Is(err, entity.ErrSessionNotFound) ||
		errors.Is(err, entity.ErrInvalidFormat) ||
		errors.Is(err, entity.ErrInvalidParameter) ||
		errors.Is(err, context.Canceled)
}

// HandleError provides centralized error handling for all handlers
// It logs the error with appropriate severity and sends a user-friendly message
func (h *BaseHandler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	if isUserError(err) {
		ctxzap.Warn(ctx, "handler rejected request", zap.Error(err), zap.Int64("chat_id", chatID))
	} else {
		ctxzap.Error(ctx, "handler error", zap.Error(err), zap.Int64("chat_id", chatID))
	}

	h.sendMessage(ctx, chatID, render.ClassifyError(err), nil)
}
