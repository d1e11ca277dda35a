package state

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Manager manages telegram sessions
type Manager struct {
	storage Storage
}

// NewManager creates a new state manager
func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
	}
}

// GetSession retrieves telegram session from storage
func (m *Manager) GetSession(ctx context.Context, userID int64) (*TelegramSession, error) {
	session, err := m.storage.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get telegram session from storage: %w", err)
	}

	return session, nil
}

// ActiveSessionID returns the bound session id, or "" when the user has none
func (m *Manager) ActiveSessionID(ctx context.Context, userID int64) (string, error) {
	session, err := m.storage.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get telegram session from storage: %w", err)
	}

	return session.SessionID, nil
}

// Bind points the user at sessionID, keeping the original creation time
func (m *Manager) Bind(ctx context.Context, userID, chatID int64, sessionID string) error {
	now := time.Now()
	session := &TelegramSession{
		UserID:    userID,
		ChatID:    chatID,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if existing, err := m.storage.Get(ctx, userID); err == nil {
		session.CreatedAt = existing.CreatedAt
	}

	if err := m.storage.Set(ctx, session); err != nil {
		return fmt.Errorf("save telegram session to storage: %w", err)
	}

	return nil
}

// DeleteSession removes telegram session from storage
func (m *Manager) DeleteSession(ctx context.Context, userID int64) error {
	if err := m.storage.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete telegram session from storage: %w", err)
	}

	return nil
}
