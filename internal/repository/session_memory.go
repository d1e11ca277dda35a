package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/google/uuid"
)

var _ SessionRepository = &SessionMemory{}

// SessionMemory keeps sessions in process memory. It is used when no
// database is configured.
type SessionMemory struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
	messages map[string][]*entity.Message
	now      func() time.Time
}

func NewSessionMemory() *SessionMemory {
	return &SessionMemory{
		sessions: make(map[string]*entity.Session),
		messages: make(map[string][]*entity.Message),
		now:      time.Now,
	}
}

func (r *SessionMemory) CreateSession(_ context.Context, title string) (*entity.Session, error) {
	now := r.now()
	session := &entity.Session{
		ID:           uuid.NewString(),
		Title:        title,
		LastActivity: now,
		CreatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session

	cp := *session
	return &cp, nil
}

func (r *SessionMemory) GetSession(_ context.Context, id string) (*entity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *SessionMemory) ListSessions(_ context.Context, limit, offset int) ([]*entity.Session, error) {
	r.mu.RLock()
	all := make([]*entity.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		cp := *s
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].LastActivity.After(all[j].LastActivity)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *SessionMemory) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return entity.ErrSessionNotFound
	}
	delete(r.sessions, id)
	delete(r.messages, id)
	return nil
}

func (r *SessionMemory) AppendMessage(_ context.Context, msg *entity.Message) (*entity.Message, error) {
	if !msg.Role.IsValid() {
		return nil, fmt.Errorf("%w: role %q", entity.ErrInvalidParameter, msg.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[msg.SessionID]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}

	now := r.now()
	saved := *msg
	saved.ID = uuid.NewString()
	saved.CreatedAt = now
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], &saved)

	session.MessageCount++
	session.LastActivity = now

	cp := saved
	return &cp, nil
}

func (r *SessionMemory) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return copyMessages(msgs), nil
}

func (r *SessionMemory) GetMessages(_ context.Context, sessionID string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return nil, entity.ErrSessionNotFound
	}
	return copyMessages(r.messages[sessionID]), nil
}

func copyMessages(msgs []*entity.Message) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out
}
