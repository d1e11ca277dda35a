package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository defines the interface for chat history persistence
type SessionRepository interface {
	CreateSession(ctx context.Context, title string) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*entity.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// AppendMessage stores msg and bumps the session's counters.
	AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Message, error)
	// GetRecentMessages returns the newest limit messages, oldest first.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error)
	// GetMessages returns the whole session, oldest first.
	GetMessages(ctx context.Context, sessionID string) ([]*entity.Message, error)
}

var _ SessionRepository = &SessionPostgres{}

const sessionColumns = `id, title, message_count, last_activity, created_at`

const messageColumns = `id, session_id, role, content, citations, confidence, metadata, created_at`

// SessionPostgres implements SessionRepository using PostgreSQL
type SessionPostgres struct {
	db *pgxpool.Pool
}

func NewSessionPostgres(db *pgxpool.Pool) *SessionPostgres {
	return &SessionPostgres{db: db}
}

func (r *SessionPostgres) CreateSession(ctx context.Context, title string) (*entity.Session, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO sessions (id, title) VALUES ($1, $2) RETURNING `+sessionColumns,
		pgtype.UUID{Bytes: uuid.New(), Valid: true},
		title,
	)

	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (r *SessionPostgres) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	sessionID, err := toPgUUID(id)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (r *SessionPostgres) ListSessions(ctx context.Context, limit, offset int) ([]*entity.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY last_activity DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionPostgres) DeleteSession(ctx context.Context, id string) error {
	sessionID, err := toPgUUID(id)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrSessionNotFound
	}
	return nil
}

func (r *SessionPostgres) AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	sessionID, err := toPgUUID(msg.SessionID)
	if err != nil {
		return nil, err
	}
	if !msg.Role.IsValid() {
		return nil, fmt.Errorf("%w: role %q", entity.ErrInvalidParameter, msg.Role)
	}

	citations, err := jsonOrNil(msg.Citations)
	if err != nil {
		return nil, fmt.Errorf("encode citations: %w", err)
	}
	metadata, err := mapJSONOrNil(msg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	var confidence pgtype.Text
	if msg.Confidence != nil {
		confidence = pgtype.Text{String: string(*msg.Confidence), Valid: true}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET message_count = message_count + 1, last_activity = now() WHERE id = $1`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, entity.ErrSessionNotFound
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO messages (id, session_id, role, content, citations, confidence, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+messageColumns,
		pgtype.UUID{Bytes: uuid.New(), Valid: true},
		sessionID,
		string(msg.Role),
		msg.Content,
		citations,
		confidence,
		metadata,
	)
	saved, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return saved, nil
}

func (r *SessionPostgres) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error) {
	id, err := toPgUUID(sessionID)
	if err != nil {
		return nil, err
	}

	msgs, err := r.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get recent messages: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (r *SessionPostgres) GetMessages(ctx context.Context, sessionID string) ([]*entity.Message, error) {
	if _, err := r.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	id, err := toPgUUID(sessionID)
	if err != nil {
		return nil, err
	}

	msgs, err := r.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = $1 ORDER BY created_at, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return msgs, nil
}

func (r *SessionPostgres) queryMessages(ctx context.Context, query string, args ...any) ([]*entity.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*entity.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func scanSession(row pgx.Row) (*entity.Session, error) {
	var (
		id           pgtype.UUID
		session      entity.Session
		lastActivity pgtype.Timestamptz
		createdAt    pgtype.Timestamptz
		messageCount int32
	)
	if err := row.Scan(&id, &session.Title, &messageCount, &lastActivity, &createdAt); err != nil {
		return nil, err
	}

	session.ID = uuid.UUID(id.Bytes).String()
	session.MessageCount = int(messageCount)
	session.LastActivity = lastActivity.Time
	session.CreatedAt = createdAt.Time
	return &session, nil
}

func scanMessage(row pgx.Row) (*entity.Message, error) {
	var m messageRow
	if err := row.Scan(
		&m.ID,
		&m.SessionID,
		&m.Role,
		&m.Content,
		&m.Citations,
		&m.Confidence,
		&m.Metadata,
		&m.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return toEntityMessage(&m)
}
