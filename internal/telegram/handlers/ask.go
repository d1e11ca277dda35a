package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/telegram/keyboard"
	"github.com/futig/nelson-backend/internal/telegram/render"
	"github.com/futig/nelson-backend/internal/telegram/state"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const cursor = " ▌"

// AskHandler answers free text messages, editing one reply as the answer streams in
type AskHandler struct {
	BaseHandler
	bot          BotAPI
	assistant    AssistantUsecase
	conv         *conversations
	keyboard     *keyboard.Builder
	editInterval time.Duration
	now          func() time.Time
}

// NewAskHandler creates a new question handler
func NewAskHandler(
	bot BotAPI,
	sender *MessageSender,
	stateManager *state.Manager,
	assistant AssistantUsecase,
	sessions SessionUsecase,
	kb *keyboard.Builder,
	editInterval time.Duration,
) *AskHandler {
	return &AskHandler{
		BaseHandler: BaseHandler{
			stateName:     HandlerStateQuestion,
			messageSender: sender,
		},
		bot:          bot,
		assistant:    assistant,
		conv:         &conversations{sessions: sessions, stateManager: stateManager, sender: sender},
		keyboard:     kb,
		editInterval: editInterval,
		now:          time.Now,
	}
}

// Handle implements Handler
func (h *AskHandler) Handle(ctx context.Context, msg *Message) error {
	question := strings.TrimSpace(msg.Text)
	if question == "" {
		h.sendMessage(ctx, msg.ChatID, render.ErrUnsupported, nil)
		return nil
	}

	sessionID, err := h.conv.active(ctx, msg.UserID, msg.ChatID, question)
	if err != nil {
		return err
	}

	typing := NewTypingNotifier(h.bot, msg.ChatID)
	typing.Start(ctx)
	defer typing.Stop()

	placeholder, err := h.messageSender.Send(ctx, msg.ChatID, render.MsgProgressConnecting, nil)
	if err != nil {
		return fmt.Errorf("send placeholder: %w", err)
	}

	events := h.assistant.AskQuestionStreaming(ctx, &entity.AskRequest{
		Query:     question,
		SessionID: &sessionID,
	})

	r := &replyEditor{
		h:         h,
		chatID:    msg.ChatID,
		messageID: placeholder.MessageID,
		shown:     render.MsgProgressConnecting,
	}
	for ev := range events {
		switch ev.Kind {
		case entity.StreamEventProgress:
			r.progress(ctx, ev.Text)
		case entity.StreamEventDelta:
			r.delta(ctx, ev.Text)
		case entity.StreamEventFinal:
			typing.Stop()
			r.final(ctx, ev.Answer)
			ctxzap.Info(ctx, "telegram answer delivered",
				zap.String("session_id", sessionID),
				zap.String("outcome", string(ev.Answer.Outcome)),
				zap.String("confidence", string(ev.Answer.Confidence)),
			)
		}
	}
	return nil
}

// replyEditor keeps the placeholder message in sync with the stream.
// Edits are throttled to one per editInterval.
type replyEditor struct {
	h         *AskHandler
	chatID    int64
	messageID int
	text      strings.Builder
	shown     string
	lastEdit  time.Time
}

func (r *replyEditor) progress(ctx context.Context, marker string) {
	if r.text.Len() > 0 {
		return
	}
	r.edit(ctx, render.Progress(marker), nil)
}

func (r *replyEditor) delta(ctx context.Context, text string) {
	r.text.WriteString(text)
	if r.h.now().Sub(r.lastEdit) < r.h.editInterval {
		return
	}
	r.edit(ctx, preview(r.text.String()), nil)
}

func (r *replyEditor) final(ctx context.Context, answer *entity.GeneratedAnswer) {
	markup := r.h.keyboard.AnswerKeyboard()
	parts := render.Split(render.Answer(answer), render.MaxMessageLength)

	if len(parts) == 1 {
		r.edit(ctx, parts[0], &markup)
		return
	}

	r.edit(ctx, parts[0], nil)
	for i, part := range parts[1:] {
		var m interface{}
		if i == len(parts)-2 {
			m = markup
		}
		if err := r.h.messageSender.SendCritical(ctx, r.chatID, part, m); err != nil {
			return
		}
	}
}

func (r *replyEditor) edit(ctx context.Context, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if text == r.shown && markup == nil {
		return
	}
	if err := r.h.messageSender.Edit(ctx, r.chatID, r.messageID, text, markup); err != nil {
		return
	}
	r.shown = text
	r.lastEdit = r.h.now()
}

// preview shows the partial answer with a cursor, keeping the head when it
// outgrows one message.
func preview(text string) string {
	limit := render.MaxMessageLength - utf8.RuneCountInString(cursor)
	if utf8.RuneCountInString(text) > limit {
		text = string([]rune(text)[:limit])
	}
	return text + cursor
}
