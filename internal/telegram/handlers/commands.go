package handlers

import (
	"context"
	"strings"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/telegram/keyboard"
	"github.com/futig/nelson-backend/internal/telegram/render"
	"github.com/futig/nelson-backend/internal/telegram/state"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CommandHandler handles /start, /new, /help and /export
type CommandHandler struct {
	BaseHandler
	conv     *conversations
	keyboard *keyboard.Builder
	corpus   entity.Corpus
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	sender *MessageSender,
	stateManager *state.Manager,
	sessions SessionUsecase,
	kb *keyboard.Builder,
	corpus entity.Corpus,
) *CommandHandler {
	return &CommandHandler{
		BaseHandler: BaseHandler{
			stateName:     HandlerStateCommand,
			messageSender: sender,
		},
		conv:     &conversations{sessions: sessions, stateManager: stateManager, sender: sender},
		keyboard: kb,
		corpus:   corpus,
	}
}

// Handle implements Handler
func (h *CommandHandler) Handle(ctx context.Context, msg *Message) error {
	ctxzap.Info(ctx, "command received",
		zap.String("command", msg.Command),
		zap.Int64("user_id", msg.UserID),
	)

	switch msg.Command {
	case "start":
		h.sendMessage(ctx, msg.ChatID, render.Welcome(h.corpus), nil)
		_, err := h.conv.start(ctx, msg.UserID, msg.ChatID, "")
		return err
	case "new":
		if _, err := h.conv.start(ctx, msg.UserID, msg.ChatID, ""); err != nil {
			return err
		}
		h.sendMessage(ctx, msg.ChatID, render.MsgNewSession, nil)
		return nil
	case "help":
		h.sendMessage(ctx, msg.ChatID, render.MsgHelp, nil)
		return nil
	case "export":
		format := strings.ToLower(strings.TrimSpace(msg.CommandArgs))
		if format == "" {
			h.sendMessage(ctx, msg.ChatID, "Choose a format:", h.keyboard.ExportKeyboard())
			return nil
		}
		return h.conv.export(ctx, msg.UserID, msg.ChatID, entity.ResultFormat(format))
	default:
		h.sendMessage(ctx, msg.ChatID, render.ErrUnknownCommand, nil)
		return nil
	}
}
