package state

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a user has no bound session.
var ErrNotFound = errors.New("telegram session not found")

// TelegramSession binds a telegram user to the chat session their
// questions are recorded in.
type TelegramSession struct {
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage defines the interface for telegram session persistence
type Storage interface {
	// Get retrieves telegram session by user ID, ErrNotFound when absent
	Get(ctx context.Context, userID int64) (*TelegramSession, error)

	// Set saves telegram session
	Set(ctx context.Context, session *TelegramSession) error

	// Delete removes telegram session
	Delete(ctx context.Context, userID int64) error
}
