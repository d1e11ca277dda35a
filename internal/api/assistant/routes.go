package assistant

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the blocking question and chapter routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/ask", h.Ask)
	r.Get("/chapters/{title}/chunks", h.ChapterChunks)
}

// RegisterStreamRoutes registers routes that hold the connection open while
// an answer is generated. They must not sit behind a request timeout.
func RegisterStreamRoutes(r chi.Router, h *Handler) {
	r.Post("/ask/stream", h.AskStream)
}
