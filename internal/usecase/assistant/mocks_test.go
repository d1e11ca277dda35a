package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/futig/nelson-backend/internal/entity"
)

// --- Mock implementations ---

// mockEmbedder implements Embedder and counts calls.
type mockEmbedder struct {
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) entity.Embedding {
	m.calls.Add(1)
	return entity.Embedding{Vector: []float32{1, 0, 0}, Model: "mock-embed", TokenCount: len(text) / 4}
}

// mockSearcher implements retrieval.ChunkSearcher.
type mockSearcher struct {
	vectorHits []entity.ScoredChunk
	textHits   []entity.ScoredChunk
	pingErr    error
	vectorErr  error

	pingCalls   atomic.Int32
	vectorCalls atomic.Int32
	textCalls   atomic.Int32

	mu        sync.Mutex
	lastQuery entity.VectorQuery
}

func (m *mockSearcher) SearchByVector(_ context.Context, q entity.VectorQuery) ([]entity.ScoredChunk, error) {
	m.vectorCalls.Add(1)
	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	return capHits(m.vectorHits, q.Limit), nil
}

func (m *mockSearcher) SearchByText(_ context.Context, _ string, limit int) ([]entity.ScoredChunk, error) {
	m.textCalls.Add(1)
	return capHits(m.textHits, limit), nil
}

func (m *mockSearcher) ChunksByChapter(_ context.Context, _ string) ([]entity.Chunk, error) {
	return nil, nil
}

func (m *mockSearcher) Ping(_ context.Context) error {
	m.pingCalls.Add(1)
	return m.pingErr
}

func (m *mockSearcher) lastVectorQuery() entity.VectorQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

func (m *mockSearcher) calls() int32 {
	return m.pingCalls.Load() + m.vectorCalls.Load() + m.textCalls.Load()
}

func capHits(hits []entity.ScoredChunk, limit int) []entity.ScoredChunk {
	out := make([]entity.ScoredChunk, len(hits))
	copy(out, hits)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// mockLLM implements generation.LLMConnector with a fixed reply.
type mockLLM struct {
	content string
	err     error

	mu      sync.Mutex
	calls   int
	lastReq *entity.CompletionRequest
}

func (m *mockLLM) record(req *entity.CompletionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLLM) Complete(_ context.Context, req *entity.CompletionRequest) (*entity.Completion, error) {
	m.record(req)
	if m.err != nil {
		return nil, m.err
	}
	return &entity.Completion{Content: m.content, Model: "mock-llm"}, nil
}

func (m *mockLLM) Stream(_ context.Context, req *entity.CompletionRequest, onDelta func(string) error) (*entity.Completion, error) {
	m.record(req)
	if m.err != nil {
		return nil, m.err
	}
	for _, part := range strings.SplitAfter(m.content, " ") {
		if err := onDelta(part); err != nil {
			return nil, err
		}
	}
	return &entity.Completion{Content: m.content, Model: "mock-llm"}, nil
}

var errStoreDown = errors.New("store is down")

// mockStore implements SessionStore.
type mockStore struct {
	appendErr  error
	historyErr error
	panicOn    bool
	block      chan struct{}
	history    []*entity.Message

	mu       sync.Mutex
	appended []*entity.Message
	attempts int
}

func (m *mockStore) AppendMessage(_ context.Context, msg *entity.Message) (*entity.Message, error) {
	if m.block != nil {
		<-m.block
	}
	if m.panicOn {
		panic("store exploded")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.appended = append(m.appended, msg)
	return msg, nil
}

func (m *mockStore) GetRecentMessages(_ context.Context, _ string, _ int) ([]*entity.Message, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

func (m *mockStore) messages() []*entity.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Message, len(m.appended))
	copy(out, m.appended)
	return out
}
