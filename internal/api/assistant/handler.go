package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/logger"
	"github.com/futig/nelson-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   AssistantUsecase
	chapters  ChapterReader
	validator RequestValidator
}

func NewHandler(usecase AssistantUsecase, chapters ChapterReader, validator RequestValidator) *Handler {
	return &Handler{
		usecase:   usecase,
		chapters:  chapters,
		validator: validator,
	}
}

// Ask handles POST /ask - answer a question in one response
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Ask")

	req, ok := h.decodeAskRequest(ctx, w, r)
	if !ok {
		return
	}

	answer := h.usecase.AskQuestion(ctx, req)

	ctxzap.Info(ctx, "question answered",
		zap.String("outcome", string(answer.Outcome)),
		zap.String("confidence", string(answer.Confidence)),
		zap.Int("citations", len(answer.Citations)),
		zap.Int64("processing_time_ms", answer.ProcessingTime.Milliseconds()),
	)
	response.Success(w, answer)
}

// AskStream handles POST /ask/stream - answer a question as Server-Sent Events
func (h *Handler) AskStream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "AskStream")

	req, ok := h.decodeAskRequest(ctx, w, r)
	if !ok {
		return
	}

	ew, ok := newEventWriter(w)
	if !ok {
		response.Error(ctx, w, http.StatusInternalServerError, "streaming unsupported", fmt.Errorf("response writer does not implement http.Flusher"))
		return
	}

	events := h.usecase.AskQuestionStreaming(ctx, req)
	for ev := range events {
		if err := ew.Write(ev); err != nil {
			// Client is gone, drain so the pipeline goroutine can exit.
			ctxzap.Info(ctx, "stream client disconnected", zap.Error(err))
			for range events {
			}
			return
		}
		if ev.Kind == entity.StreamEventFinal {
			ctxzap.Info(ctx, "streamed answer finished",
				zap.String("outcome", string(ev.Answer.Outcome)),
				zap.String("confidence", string(ev.Answer.Confidence)),
			)
		}
	}
}

// ChapterChunks handles GET /chapters/{title}/chunks - list a chapter in reading order
func (h *Handler) ChapterChunks(w http.ResponseWriter, r *http.Request) {
	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil {
		response.Error(r.Context(), w, http.StatusBadRequest, "invalid chapter title", err)
		return
	}

	ctx := logger.AddFields(r.Context(),
		zap.String("chapter", title),
		zap.String("action", "ChapterChunks"),
	)

	chunks, err := h.chapters.ChapterChunks(ctx, title)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	docs := make([]entity.RetrievedDocument, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, entity.ToRetrievedDocument(entity.ScoredChunk{Chunk: c, Rank: i + 1}))
	}

	ctxzap.Debug(ctx, "chapter chunks fetched", zap.Int("count", len(docs)))
	response.Success(w, entity.ChapterChunksResponse{Chapter: title, Chunks: docs})
}

func (h *Handler) decodeAskRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (*entity.AskRequest, bool) {
	var req entity.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return nil, false
	}

	if err := h.validator.ValidateAskRequest(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "validation failed", err)
		return nil, false
	}

	return &req, true
}
