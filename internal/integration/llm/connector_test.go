package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/entity"
)

func newTestConnector(t *testing.T, handler http.HandlerFunc) *Connector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewConnector(config.LLMConfig{
		BaseURL:        srv.URL + "/v1",
		APIKey:         "test-key",
		Model:          "gpt-4o-mini",
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
}

func testRequest() *entity.CompletionRequest {
	return &entity.CompletionRequest{
		Messages: []entity.ChatMessage{
			{Role: entity.ChatRoleSystem, Content: "system"},
			{Role: entity.ChatRoleUser, Content: "Context:\n\nQuestion: fever?"},
		},
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   256,
	}
}

func TestConnector_Complete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var body map[string]any
		c := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"model": "gpt-4o-mini-2024",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "Fever is common."}}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 4}
			}`))
		})

		got, err := c.Complete(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "Fever is common.", got.Content)
		assert.Equal(t, "gpt-4o-mini-2024", got.Model)

		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.InDelta(t, 0.1, body["temperature"], 1e-6)
		assert.EqualValues(t, 256, body["max_tokens"])
		msgs, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	})

	t.Run("empty completion", func(t *testing.T) {
		c := newTestConnector(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model": "m", "choices": []}`))
		})

		_, err := c.Complete(context.Background(), testRequest())
		assert.ErrorIs(t, err, entity.ErrEmptyCompletion)
	})

	t.Run("api error keeps the status", func(t *testing.T) {
		c := newTestConnector(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
		})

		_, err := c.Complete(context.Background(), testRequest())
		var genErr *entity.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, http.StatusTooManyRequests, genErr.StatusCode)
	})
}

func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
		}
	}
}

func TestConnector_Stream(t *testing.T) {
	t.Run("accumulates deltas and skips malformed frames", func(t *testing.T) {
		c := newTestConnector(t, sseHandler(
			`{"model": "gpt-stream", "choices": [{"index": 0, "delta": {"role": "assistant"}}]}`,
			`{"choices": [{"index": 0, "delta": {"content": "Supportive "}}]}`,
			`{not json`,
			`{"choices": [{"index": 0, "delta": {"content": "care."}}]}`,
			`[DONE]`,
		))

		var deltas []string
		got, err := c.Stream(context.Background(), testRequest(), func(d string) error {
			deltas = append(deltas, d)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Supportive ", "care."}, deltas)
		assert.Equal(t, "Supportive care.", got.Content)
		assert.Equal(t, "gpt-stream", got.Model)
	})

	t.Run("callback failure stops the stream", func(t *testing.T) {
		c := newTestConnector(t, sseHandler(
			`{"choices": [{"index": 0, "delta": {"content": "one"}}]}`,
			`{"choices": [{"index": 0, "delta": {"content": "two"}}]}`,
			`[DONE]`,
		))

		errClosed := errors.New("client gone")
		calls := 0
		_, err := c.Stream(context.Background(), testRequest(), func(string) error {
			calls++
			return errClosed
		})
		assert.ErrorIs(t, err, errClosed)
		assert.Equal(t, 1, calls)
	})

	t.Run("no content", func(t *testing.T) {
		c := newTestConnector(t, sseHandler(`[DONE]`))
		_, err := c.Stream(context.Background(), testRequest(), nil)
		assert.ErrorIs(t, err, entity.ErrEmptyCompletion)
	})

	t.Run("upstream rejects the stream", func(t *testing.T) {
		c := newTestConnector(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
		})

		_, err := c.Stream(context.Background(), testRequest(), nil)
		var genErr *entity.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, http.StatusServiceUnavailable, genErr.StatusCode)
	})
}

func TestMockConnector(t *testing.T) {
	corpus := entity.Corpus{Name: "Nelson Textbook of Pediatrics", ShortName: "Nelson", Edition: "22nd Edition"}
	m := NewMockConnector(corpus, zap.NewNop())

	req := &entity.CompletionRequest{Messages: []entity.ChatMessage{{
		Role:    entity.ChatRoleUser,
		Content: "Context:\n\n[Source 1] Chapter: Croup | Nelson Textbook of Pediatrics, 22nd Edition\nbody\n\nQuestion: q",
	}}}

	blocking, err := m.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, blocking.Content, "According to the Nelson")
	assert.Contains(t, blocking.Content, "(1) Chapter: Croup")

	var streamed string
	got, err := m.Stream(context.Background(), req, func(d string) error {
		streamed += d
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, blocking.Content, streamed)
	assert.Equal(t, blocking.Content, got.Content)

	empty, err := m.Complete(context.Background(), &entity.CompletionRequest{})
	require.NoError(t, err)
	assert.Contains(t, empty.Content, "does not contain information")
}
