package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler state constants
const (
	HandlerStateCommand  = "COMMAND"
	HandlerStateQuestion = "QUESTION"
	HandlerStateCallback = "CALLBACK"
)

// BotAPI is the part of tgbotapi.BotAPI the handlers use
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Message represents a normalized Telegram message
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	Command      string
	CommandArgs  string
	CallbackData string
	CallbackID   string
}

// Handler defines the interface for update handlers
type Handler interface {
	// Handle processes a message routed to this handler
	Handle(ctx context.Context, msg *Message) error

	// GetState returns the kind of update this handler manages
	GetState() string
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	stateName     string
	messageSender *MessageSender
}

// GetState implements Handler
func (h *BaseHandler) GetState() string {
	return h.stateName
}

// sendMessage is a convenience wrapper for messageSender.Send
func (h *BaseHandler) sendMessage(ctx context.Context, chatID int64, text string, markup interface{}) {
	if h.messageSender != nil {
		h.messageSender.Send(ctx, chatID, text, markup) //nolint:errcheck
	}
}

// validStates defines all valid handler states
var validStates = map[string]bool{
	HandlerStateCommand:  true,
	HandlerStateQuestion: true,
	HandlerStateCallback: true,
}

// IsValidState checks if a state is valid for handler registration
func IsValidState(state string) bool {
	_, ok := validStates[state]
	return ok
}
