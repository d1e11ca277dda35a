package embedding

import (
	"context"
	"fmt"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConnector calls an OpenAI-compatible /embeddings endpoint.
type OpenAIConnector struct {
	client *openai.Client
	model  string
}

func NewOpenAIConnector(cfg config.EmbeddingConfig) *OpenAIConnector {
	oaiCfg := openai.DefaultConfig(cfg.Token)
	oaiCfg.BaseURL = cfg.Url
	oaiCfg.HTTPClient = common.NewSDKClient(cfg.RequestTimeout)

	return &OpenAIConnector{
		client: openai.NewClientWithConfig(oaiCfg),
		model:  cfg.Model,
	}
}

func (c *OpenAIConnector) Model() string {
	return c.model
}

func (c *OpenAIConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OpenAIConnector) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Debug(ctx, "requesting openai embeddings", zap.Int("batch_size", len(texts)))

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
