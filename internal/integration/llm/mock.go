package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const mockModel = "mock-llm"

var sourceHeaderRe = regexp.MustCompile(`(?m)^\[Source \d+\] (.+)$`)

// MockConnector answers from the supplied context without a network call.
type MockConnector struct {
	corpus entity.Corpus
	logger *zap.Logger
}

func NewMockConnector(corpus entity.Corpus, logger *zap.Logger) *MockConnector {
	return &MockConnector{
		corpus: corpus,
		logger: logger,
	}
}

func (m *MockConnector) Complete(ctx context.Context, req *entity.CompletionRequest) (*entity.Completion, error) {
	ctxzap.Info(ctx, "[MOCK] generating completion", zap.Int("messages", len(req.Messages)))
	return &entity.Completion{Content: m.render(req), Model: mockModel}, nil
}

// Stream emits the same text as Complete, word by word.
func (m *MockConnector) Stream(ctx context.Context, req *entity.CompletionRequest, onDelta func(string) error) (*entity.Completion, error) {
	ctxzap.Info(ctx, "[MOCK] streaming completion", zap.Int("messages", len(req.Messages)))

	content := m.render(req)
	for _, word := range strings.SplitAfter(content, " ") {
		if err := ctx.Err(); err != nil {
			return nil, &entity.GenerationError{Err: err}
		}
		if onDelta != nil {
			if err := onDelta(word); err != nil {
				return nil, &entity.GenerationError{Err: err}
			}
		}
	}
	return &entity.Completion{Content: content, Model: mockModel}, nil
}

func (m *MockConnector) render(req *entity.CompletionRequest) string {
	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}

	sources := sourceHeaderRe.FindAllStringSubmatch(last, -1)
	if len(sources) == 0 {
		return "The supplied context does not contain information to answer this question."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[MOCK] According to the %s, the relevant passages are:", m.corpus.ShortName)
	for i, s := range sources {
		fmt.Fprintf(&b, " (%d) %s.", i+1, s[1])
	}
	b.WriteString(" Confidence: this is a mock answer generated for local testing only.")
	return b.String()
}
