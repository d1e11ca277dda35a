package repository

import (
	"encoding/json"
	"fmt"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// chunkRow mirrors the chunk columns returned by every chunk query.
type chunkRow struct {
	ID           string
	Content      string
	ChapterTitle string
	SectionTitle pgtype.Text
	PageNumber   pgtype.Int4
	ChunkIndex   pgtype.Int4
	Metadata     []byte
	Score        float64
}

func (r *chunkRow) scanTargets() []any {
	return []any{
		&r.ID,
		&r.Content,
		&r.ChapterTitle,
		&r.SectionTitle,
		&r.PageNumber,
		&r.ChunkIndex,
		&r.Metadata,
		&r.Score,
	}
}

func toEntityChunk(row *chunkRow) (entity.Chunk, error) {
	chunk := entity.Chunk{
		ID:           row.ID,
		Content:      row.Content,
		ChapterTitle: row.ChapterTitle,
		SectionTitle: textPtr(row.SectionTitle),
		PageNumber:   intPtr(row.PageNumber),
		ChunkIndex:   intPtr(row.ChunkIndex),
	}

	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &chunk.Metadata); err != nil {
			return entity.Chunk{}, fmt.Errorf("decode metadata of chunk %s: %w", row.ID, err)
		}
	}

	return chunk, nil
}

// messageRow mirrors the messages table.
type messageRow struct {
	ID         pgtype.UUID
	SessionID  pgtype.UUID
	Role       string
	Content    string
	Citations  []byte
	Confidence pgtype.Text
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
}

func toEntityMessage(row *messageRow) (*entity.Message, error) {
	msg := &entity.Message{
		ID:        uuid.UUID(row.ID.Bytes).String(),
		SessionID: uuid.UUID(row.SessionID.Bytes).String(),
		Role:      entity.Role(row.Role),
		Content:   row.Content,
		CreatedAt: row.CreatedAt.Time,
	}

	if row.Confidence.Valid {
		confidence := entity.Confidence(row.Confidence.String)
		msg.Confidence = &confidence
	}

	if len(row.Citations) > 0 {
		if err := json.Unmarshal(row.Citations, &msg.Citations); err != nil {
			return nil, fmt.Errorf("decode citations of message %s: %w", msg.ID, err)
		}
	}

	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &msg.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of message %s: %w", msg.ID, err)
		}
	}

	return msg, nil
}

func toPgUUID(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: invalid id %q", entity.ErrInvalidParameter, id)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func intPtr(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int32)
	return &v
}

// jsonOrNil encodes v, storing SQL NULL for empty values.
func jsonOrNil[T any](v []T) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func mapJSONOrNil(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
