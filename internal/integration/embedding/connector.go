package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/integration/common"
	pkghttp "github.com/futig/nelson-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector talks to a feature-extraction inference endpoint
// (POST {"inputs": ...} -> numeric array).
type Connector struct {
	config    config.EmbeddingConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.EmbeddingConfig, logger *zap.Logger) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

type featureExtractionRequest struct {
	Inputs  any             `json:"inputs"`
	Options map[string]bool `json:"options,omitempty"`
}

func (c *Connector) Model() string {
	return c.config.Model
}

func (c *Connector) Embed(ctx context.Context, text string) ([]float32, error) {
	ctxzap.Debug(ctx, "requesting embedding", zap.Int("text_length", len(text)))

	var raw json.RawMessage
	req := featureExtractionRequest{
		Inputs:  text,
		Options: map[string]bool{"wait_for_model": true},
	}
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.Endpoint, req, &raw); err != nil {
		return nil, err
	}

	return parseVector(raw)
}

func (c *Connector) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Debug(ctx, "requesting batch embedding", zap.Int("batch_size", len(texts)))

	var raws []json.RawMessage
	req := featureExtractionRequest{
		Inputs:  texts,
		Options: map[string]bool{"wait_for_model": true},
	}
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.Endpoint, req, &raws); err != nil {
		return nil, err
	}
	if len(raws) != len(texts) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d texts", len(raws), len(texts))
	}

	out := make([][]float32, len(raws))
	for i, raw := range raws {
		vec, err := parseVector(raw)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
