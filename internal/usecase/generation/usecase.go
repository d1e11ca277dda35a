// Package generation grounds a completion in retrieved chunks and scores the result.
package generation

import (
	"context"
	"errors"
	"time"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Generator struct {
	llm       LLMConnector
	assembler *Assembler
	corpus    entity.Corpus
	system    string
}

func NewGenerator(llm LLMConnector, corpus entity.Corpus) *Generator {
	return &Generator{
		llm:       llm,
		assembler: NewAssembler(corpus, entity.DefaultContextCharBudget),
		corpus:    corpus,
		system:    SystemPrompt(corpus),
	}
}

// Generate runs a single blocking completion over the retrieved chunks.
func (g *Generator) Generate(ctx context.Context, query string, chunks []entity.ScoredChunk, history []entity.Turn, cfg entity.RAGConfig) (*entity.GeneratedAnswer, error) {
	start := time.Now()
	req, included := g.prepare(query, chunks, history, cfg)

	ctxzap.Info(ctx, "requesting completion",
		zap.Int("context_chunks", len(included)),
		zap.Int("history_turns", len(req.Messages)-2),
	)

	completion, err := g.llm.Complete(ctx, req)
	if err != nil {
		return nil, asGenerationError(err)
	}

	return g.answer(completion, chunks, included, time.Since(start)), nil
}

// GenerateStream forwards every fragment to onDelta as it arrives and then
// scores the accumulated text exactly like Generate.
func (g *Generator) GenerateStream(ctx context.Context, query string, chunks []entity.ScoredChunk, history []entity.Turn, cfg entity.RAGConfig, onDelta func(string) error) (*entity.GeneratedAnswer, error) {
	start := time.Now()
	req, included := g.prepare(query, chunks, history, cfg)

	ctxzap.Info(ctx, "requesting streamed completion",
		zap.Int("context_chunks", len(included)),
		zap.Int("history_turns", len(req.Messages)-2),
	)

	completion, err := g.llm.Stream(ctx, req, onDelta)
	if err != nil {
		return nil, asGenerationError(err)
	}

	return g.answer(completion, chunks, included, time.Since(start)), nil
}

func (g *Generator) prepare(query string, chunks []entity.ScoredChunk, history []entity.Turn, cfg entity.RAGConfig) (*entity.CompletionRequest, []entity.ScoredChunk) {
	assembler := g.assembler
	if cfg.ContextCharBudget != 0 {
		assembler = g.assembler.WithBudget(cfg.ContextCharBudget)
	}
	contextBlock, included := assembler.Assemble(chunks)

	return &entity.CompletionRequest{
		Messages:    BuildMessages(g.system, contextBlock, query, history, cfg.HistoryWindow),
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	}, included
}

func (g *Generator) answer(c *entity.Completion, retrieved, included []entity.ScoredChunk, elapsed time.Duration) *entity.GeneratedAnswer {
	return &entity.GeneratedAnswer{
		Content:            c.Content,
		Confidence:         Confidence(len(retrieved), c.Content, g.corpus),
		Citations:          Citations(included, g.corpus.Edition),
		RetrievedDocuments: entity.ToRetrievedDocuments(retrieved),
		ProcessingTime:     elapsed,
		Outcome:            entity.OutcomeAnswered,
		Model:              c.Model,
	}
}

func asGenerationError(err error) error {
	var genErr *entity.GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &entity.GenerationError{Err: err}
}
