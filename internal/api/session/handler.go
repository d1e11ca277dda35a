package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/logger"
	"github.com/futig/nelson-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   SessionUsecase
	validator RequestValidator
}

func NewHandler(usecase SessionUsecase, validator RequestValidator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// CreateSession handles POST /sessions - start a conversation
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateSession")

	// An empty body creates an untitled session.
	var req entity.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateCreateSession(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "validation failed", err)
		return
	}

	session, err := h.usecase.CreateSession(ctx, req.Title)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Created(w, session)
}

// ListSessions handles GET /sessions?limit=&offset= - most recent first
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListSessions")

	limit, err := queryInt(r, "limit")
	if err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid limit", err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid offset", err)
		return
	}

	sessions, err := h.usecase.ListSessions(ctx, limit, offset)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, sessions)
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID, ok := h.sessionContext(w, r, "GetSession")
	if !ok {
		return
	}

	session, err := h.usecase.GetSession(ctx, sessionID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, session)
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID, ok := h.sessionContext(w, r, "DeleteSession")
	if !ok {
		return
	}

	if err := h.usecase.DeleteSession(ctx, sessionID); err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// GetMessages handles GET /sessions/{id}/messages - whole history, oldest first
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID, ok := h.sessionContext(w, r, "GetMessages")
	if !ok {
		return
	}

	msgs, err := h.usecase.GetMessages(ctx, sessionID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "messages fetched", zap.Int("count", len(msgs)))
	response.Success(w, msgs)
}

// ExportTranscript handles GET /sessions/{id}/export?format=markdown|pdf|docx
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	ctx, sessionID, ok := h.sessionContext(w, r, "ExportTranscript")
	if !ok {
		return
	}

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = string(entity.FormatMarkdown)
	}
	format := entity.ResultFormat(formatParam)
	if err := h.validator.ValidateExportFormat(format); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid format parameter", err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("format", string(format)))

	export, err := h.usecase.ExportTranscript(ctx, sessionID, format)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Content); err != nil {
		ctxzap.Warn(ctx, "failed to write export", zap.Error(err))
	}
}

func (h *Handler) sessionContext(w http.ResponseWriter, r *http.Request, action string) (context.Context, string, bool) {
	sessionID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", action),
	)

	if err := h.validator.ValidateSessionID(sessionID); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid session id", err)
		return ctx, "", false
	}
	return ctx, sessionID, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", entity.ErrInvalidParameter, key)
	}
	return v, nil
}
