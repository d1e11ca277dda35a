package assistant

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/futig/nelson-backend/internal/entity"
)

type textPayload struct {
	Text string `json:"text"`
}

// eventWriter writes Server-Sent Events and flushes after each one.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventWriter(w http.ResponseWriter) (*eventWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventWriter{w: w, flusher: flusher}, true
}

// Write sends ev as "event: <kind>" with a JSON data line. Progress and delta
// events carry {"text": ...}, the final event carries the whole answer.
func (ew *eventWriter) Write(ev entity.StreamEvent) error {
	var payload any = textPayload{Text: ev.Text}
	if ev.Kind == entity.StreamEventFinal {
		payload = ev.Answer
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Kind, err)
	}
	if _, err := fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Kind, err)
	}
	ew.flusher.Flush()
	return nil
}
