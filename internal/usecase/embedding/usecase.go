// Package embedding turns text into vectors, falling back to a local
// deterministic vectorizer when the model backend cannot answer.
package embedding

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/cache"
	pkgRetry "github.com/futig/nelson-backend/internal/pkg/retry"
	"github.com/futig/nelson-backend/internal/pkg/textproc"
	"github.com/futig/nelson-backend/internal/pkg/vector"
	pkghttp "github.com/futig/nelson-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// FallbackModel is reported for vectors built without the backend.
const FallbackModel = "fallback-text-embedding"

type Generator struct {
	backend   Backend
	cache     Cache
	dimension int
	retry     *pkgRetry.RetryConfig
}

// NewGenerator wires the generator. backend and cache may be nil; without a
// backend every vector comes from the fallback.
func NewGenerator(backend Backend, cache Cache, dimension int, retry *pkgRetry.RetryConfig) *Generator {
	if retry == nil {
		retry = pkgRetry.DefaultRetryConfig()
	}
	return &Generator{
		backend:   backend,
		cache:     cache,
		dimension: dimension,
		retry:     retry,
	}
}

func (g *Generator) Dimension() int {
	return g.dimension
}

// Embed never fails: backend errors and vectors of the wrong dimension are
// logged and replaced with the fallback vector.
func (g *Generator) Embed(ctx context.Context, text string) entity.Embedding {
	normalized := textproc.Normalize(text)

	if g.backend == nil {
		return g.Fallback(normalized)
	}

	key := cache.Key(g.backend.Model(), normalized)
	if vec, ok := g.cacheGet(ctx, key); ok {
		return g.result(vec, g.backend.Model(), normalized)
	}

	var vec []float32
	err := g.retry.Do(ctx, func() error {
		var err error
		vec, err = g.backend.Embed(ctx, normalized)
		return err
	}, isRetryable)
	if err != nil {
		ctxzap.Warn(ctx, "embedding backend unavailable, using fallback",
			zap.String("model", g.backend.Model()),
			zap.Error(err),
		)
		return g.Fallback(normalized)
	}

	if !g.validDimension(ctx, vec) {
		return g.Fallback(normalized)
	}

	g.cacheSet(ctx, key, vec)
	return g.result(vec, g.backend.Model(), normalized)
}

// EmbedBatch embeds every text independently of the others; one bad vector
// only sends that text to the fallback.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) []entity.Embedding {
	out := make([]entity.Embedding, len(texts))
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = textproc.Normalize(t)
	}

	if g.backend == nil {
		for i, t := range normalized {
			out[i] = g.Fallback(t)
		}
		return out
	}

	model := g.backend.Model()
	var missIdx []int
	var missTexts []string
	for i, t := range normalized {
		if vec, ok := g.cacheGet(ctx, cache.Key(model, t)); ok {
			out[i] = g.result(vec, model, t)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out
	}

	var vecs [][]float32
	err := g.retry.Do(ctx, func() error {
		var err error
		vecs, err = g.backend.EmbedBatch(ctx, missTexts)
		return err
	}, isRetryable)
	if err != nil || len(vecs) != len(missTexts) {
		ctxzap.Warn(ctx, "batch embedding failed, using fallback",
			zap.String("model", model),
			zap.Int("batch_size", len(missTexts)),
			zap.Error(err),
		)
		for _, i := range missIdx {
			out[i] = g.Fallback(normalized[i])
		}
		return out
	}

	for j, i := range missIdx {
		if !g.validDimension(ctx, vecs[j]) {
			out[i] = g.Fallback(normalized[i])
			continue
		}
		g.cacheSet(ctx, cache.Key(model, normalized[i]), vecs[j])
		out[i] = g.result(vecs[j], model, normalized[i])
	}
	return out
}

// Fallback hashes the text into a unit vector. It is deterministic and
// never touches the network.
func (g *Generator) Fallback(text string) entity.Embedding {
	return g.result(vector.HashEmbed(text, g.dimension), FallbackModel, text)
}

func (g *Generator) result(vec []float32, model, text string) entity.Embedding {
	return entity.Embedding{
		Vector:     vec,
		Model:      model,
		TokenCount: EstimateTokens(text),
	}
}

// validDimension rejects vectors that cannot be compared with the corpus.
func (g *Generator) validDimension(ctx context.Context, vec []float32) bool {
	if len(vec) == g.dimension {
		return true
	}
	ctxzap.Warn(ctx, "embedding dimension mismatch, using fallback",
		zap.Int("expected", g.dimension),
		zap.Int("actual", len(vec)),
	)
	return false
}

func (g *Generator) cacheGet(ctx context.Context, key string) ([]float32, bool) {
	if g.cache == nil {
		return nil, false
	}
	vec, ok := g.cache.Get(ctx, key)
	if ok && len(vec) != g.dimension {
		return nil, false
	}
	return vec, ok
}

func (g *Generator) cacheSet(ctx context.Context, key string, vec []float32) {
	if g.cache != nil {
		g.cache.Set(ctx, key, vec)
	}
}

// EstimateTokens approximates the token count as ceil(characters / 4).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

func isRetryable(err error) bool {
	if pkghttp.IsRetryable(err) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
