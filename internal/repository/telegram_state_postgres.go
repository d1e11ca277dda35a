package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/futig/nelson-backend/internal/telegram/state"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ state.Storage = &TelegramStatePostgres{}
	_ state.Storage = &TelegramStateMemory{}
)

// TelegramStatePostgres handles telegram session mapping persistence
type TelegramStatePostgres struct {
	db *pgxpool.Pool
}

// NewTelegramStatePostgres creates a new telegram session repository
func NewTelegramStatePostgres(db *pgxpool.Pool) *TelegramStatePostgres {
	return &TelegramStatePostgres{db: db}
}

// Get retrieves telegram session by user ID
func (r *TelegramStatePostgres) Get(ctx context.Context, userID int64) (*state.TelegramSession, error) {
	var (
		session   state.TelegramSession
		sessionID pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx,
		`SELECT user_id, chat_id, session_id, created_at, updated_at FROM telegram_bindings WHERE user_id = $1`,
		userID,
	).Scan(&session.UserID, &session.ChatID, &sessionID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", state.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("query telegram session: %w", err)
	}

	session.SessionID = uuid.UUID(sessionID.Bytes).String()
	session.CreatedAt = createdAt.Time
	session.UpdatedAt = updatedAt.Time
	return &session, nil
}

// Set saves telegram session
func (r *TelegramStatePostgres) Set(ctx context.Context, session *state.TelegramSession) error {
	sessionID, err := toPgUUID(session.SessionID)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO telegram_bindings (user_id, chat_id, session_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET chat_id = EXCLUDED.chat_id, session_id = EXCLUDED.session_id, updated_at = EXCLUDED.updated_at`,
		session.UserID,
		session.ChatID,
		sessionID,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert telegram session: %w", err)
	}

	return nil
}

// Delete removes telegram session
func (r *TelegramStatePostgres) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM telegram_bindings WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete telegram session: %w", err)
	}

	return nil
}

// TelegramStateMemory keeps bindings in process memory.
type TelegramStateMemory struct {
	mu       sync.RWMutex
	sessions map[int64]state.TelegramSession
}

func NewTelegramStateMemory() *TelegramStateMemory {
	return &TelegramStateMemory{sessions: make(map[int64]state.TelegramSession)}
}

func (r *TelegramStateMemory) Get(_ context.Context, userID int64) (*state.TelegramSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", state.ErrNotFound, userID)
	}
	return &session, nil
}

func (r *TelegramStateMemory) Set(_ context.Context, session *state.TelegramSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.UserID] = *session
	return nil
}

func (r *TelegramStateMemory) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
	return nil
}
