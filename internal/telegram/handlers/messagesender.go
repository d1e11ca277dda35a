package handlers

import (
	"context"
	"fmt"
	"strings"

	pkgRetry "github.com/futig/nelson-backend/internal/pkg/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MessageSender provides centralized message sending functionality
type MessageSender struct {
	bot   BotAPI
	retry *pkgRetry.RetryConfig
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot BotAPI, retry *pkgRetry.RetryConfig) *MessageSender {
	if retry == nil {
		retry = pkgRetry.DefaultRetryConfig()
	}
	return &MessageSender{
		bot:   bot,
		retry: retry,
	}
}

// Send sends a message to the specified chat
func (s *MessageSender) Send(ctx context.Context, chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := s.bot.Send(msg)
	if err != nil {
		ctxzap.Error(ctx, "failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		return tgbotapi.Message{}, err
	}

	return sent, nil
}

// SendCritical sends a message that must be delivered, retrying with backoff
func (s *MessageSender) SendCritical(ctx context.Context, chatID int64, text string, markup interface{}) error {
	attempt := 0
	err := s.retry.Do(ctx, func() error {
		attempt++
		msg := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		_, err := s.bot.Send(msg)
		if err != nil {
			ctxzap.Warn(ctx, "failed to send message, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int64("chat_id", chatID),
			)
		}
		return err
	}, nil)
	if err != nil {
		ctxzap.Error(ctx, "failed to send message after all retries",
			zap.Error(err),
			zap.Int("attempts", attempt),
			zap.Int64("chat_id", chatID),
		)
		return err
	}
	return nil
}

// Edit replaces the text of a sent message. Telegram rejects edits that
// change nothing, those are not errors.
func (s *MessageSender) Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if markup != nil {
		edit.ReplyMarkup = markup
	}

	if _, err := s.bot.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		ctxzap.Warn(ctx, "failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
		)
		return err
	}
	return nil
}

// SendDocument uploads data as a file
func (s *MessageSender) SendDocument(ctx context.Context, chatID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: data,
	})
	if _, err := s.bot.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	ctxzap.Debug(ctx, "document sent",
		zap.Int64("chat_id", chatID),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// AnswerCallback acknowledges a button press
func (s *MessageSender) AnswerCallback(ctx context.Context, callbackID, text string) {
	if _, err := s.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		ctxzap.Warn(ctx, "failed to answer callback",
			zap.Error(err),
			zap.String("callback_id", callbackID),
		)
	}
}
