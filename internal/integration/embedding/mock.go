package embedding

import (
	"context"

	"github.com/futig/nelson-backend/internal/pkg/vector"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector produces hash vectors without a network call.
type MockConnector struct {
	dimension int
	logger    *zap.Logger
}

func NewMockConnector(dimension int, logger *zap.Logger) *MockConnector {
	return &MockConnector{
		dimension: dimension,
		logger:    logger,
	}
}

func (m *MockConnector) Model() string {
	return "mock-embedding"
}

func (m *MockConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	ctxzap.Info(ctx, "[MOCK] embedding text", zap.Int("text_length", len(text)))
	return vector.HashEmbed(text, m.dimension), nil
}

func (m *MockConnector) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Info(ctx, "[MOCK] embedding batch", zap.Int("batch_size", len(texts)))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vector.HashEmbed(t, m.dimension)
	}
	return out, nil
}
