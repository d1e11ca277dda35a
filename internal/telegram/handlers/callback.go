package handlers

import (
	"context"
	"fmt"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/telegram/keyboard"
	"github.com/futig/nelson-backend/internal/telegram/render"
	"github.com/futig/nelson-backend/internal/telegram/state"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CallbackHandler handles all callback button clicks
type CallbackHandler struct {
	BaseHandler
	conv *conversations
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(sender *MessageSender, stateManager *state.Manager, sessions SessionUsecase) *CallbackHandler {
	return &CallbackHandler{
		BaseHandler: BaseHandler{
			stateName:     HandlerStateCallback,
			messageSender: sender,
		},
		conv: &conversations{sessions: sessions, stateManager: stateManager, sender: sender},
	}
}

// Handle implements Handler
func (h *CallbackHandler) Handle(ctx context.Context, msg *Message) error {
	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		h.messageSender.AnswerCallback(ctx, msg.CallbackID, "❌ Invalid button")
		return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	ctxzap.Info(ctx, "callback query received",
		zap.String("callback_action", data.Action),
		zap.String("value", data.Value),
		zap.Int64("user_id", msg.UserID),
	)

	switch data.Action {
	case keyboard.ActionNew:
		h.messageSender.AnswerCallback(ctx, msg.CallbackID, "")
		if _, err := h.conv.start(ctx, msg.UserID, msg.ChatID, ""); err != nil {
			return err
		}
		h.sendMessage(ctx, msg.ChatID, render.MsgNewSession, nil)
		return nil
	case keyboard.ActionExport:
		h.messageSender.AnswerCallback(ctx, msg.CallbackID, "⏳ Preparing...")
		return h.conv.export(ctx, msg.UserID, msg.ChatID, entity.ResultFormat(data.Value))
	default:
		h.messageSender.AnswerCallback(ctx, msg.CallbackID, "❌ Unknown action")
		return nil
	}
}
