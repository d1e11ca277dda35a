package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/telegram/render"
	"github.com/futig/nelson-backend/internal/telegram/state"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxTitleRunes = 60

// conversations binds Telegram users to chat sessions
type conversations struct {
	sessions     SessionUsecase
	stateManager *state.Manager
	sender       *MessageSender
}

// start opens a new session for the user and makes it the active one
func (c *conversations) start(ctx context.Context, userID, chatID int64, title string) (string, error) {
	session, err := c.sessions.CreateSession(ctx, title)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := c.stateManager.Bind(ctx, userID, chatID, session.ID); err != nil {
		return "", fmt.Errorf("bind session: %w", err)
	}

	ctxzap.Info(ctx, "telegram conversation started",
		zap.Int64("user_id", userID),
		zap.String("session_id", session.ID),
	)
	return session.ID, nil
}

// active returns the user's session, opening one titled after the first
// question when there is none
func (c *conversations) active(ctx context.Context, userID, chatID int64, question string) (string, error) {
	sessionID, err := c.stateManager.ActiveSessionID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get active session: %w", err)
	}
	if sessionID != "" {
		return sessionID, nil
	}
	return c.start(ctx, userID, chatID, titleFrom(question))
}

// export sends the active conversation as a document
func (c *conversations) export(ctx context.Context, userID, chatID int64, format entity.ResultFormat) error {
	if !format.IsValid() {
		return fmt.Errorf("%w: %q", entity.ErrInvalidFormat, format)
	}

	sessionID, err := c.stateManager.ActiveSessionID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get active session: %w", err)
	}
	if sessionID == "" {
		c.sender.Send(ctx, chatID, render.MsgNothingToExport, nil) //nolint:errcheck
		return nil
	}

	msgs, err := c.sessions.GetMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		c.sender.Send(ctx, chatID, render.MsgNothingToExport, nil) //nolint:errcheck
		return nil
	}

	c.sender.Send(ctx, chatID, render.MsgExportPreparing, nil) //nolint:errcheck

	export, err := c.sessions.ExportTranscript(ctx, sessionID, format)
	if err != nil {
		return fmt.Errorf("export transcript: %w", err)
	}
	return c.sender.SendDocument(ctx, chatID, export.Filename, export.Content)
}

func titleFrom(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleRunes-1])) + "…"
}
