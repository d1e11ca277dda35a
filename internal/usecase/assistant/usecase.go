// Package assistant runs a question through the retrieval and generation
// pipeline and always terminates in a GeneratedAnswer.
package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/logger"
	pkgRetry "github.com/futig/nelson-backend/internal/pkg/retry"
	"github.com/futig/nelson-backend/internal/usecase/classifier"
	"github.com/futig/nelson-backend/internal/usecase/generation"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const defaultPersistTimeout = 10 * time.Second

type Options struct {
	Defaults       entity.RAGConfig
	Corpus         entity.Corpus
	PersistTimeout time.Duration
	PersistRetry   *pkgRetry.RetryConfig
}

type AssistantUsecase struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	sessions  SessionStore

	defaults       entity.RAGConfig
	corpus         entity.Corpus
	persistTimeout time.Duration
	persistRetry   *pkgRetry.RetryConfig

	pending sync.WaitGroup
}

// NewUsecase builds the orchestrator. sessions may be nil, in which case
// nothing is persisted and history comes only from the request.
func NewUsecase(
	embedder Embedder,
	retriever Retriever,
	generator Generator,
	sessions SessionStore,
	opts Options,
) *AssistantUsecase {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.PersistRetry == nil {
		opts.PersistRetry = pkgRetry.DefaultRetryConfig()
	}
	return &AssistantUsecase{
		embedder:       embedder,
		retriever:      retriever,
		generator:      generator,
		sessions:       sessions,
		defaults:       opts.Defaults,
		corpus:         opts.Corpus,
		persistTimeout: opts.PersistTimeout,
		persistRetry:   opts.PersistRetry,
	}
}

// AskQuestion answers a query in one call.
func (uc *AssistantUsecase) AskQuestion(ctx context.Context, req *entity.AskRequest) *entity.GeneratedAnswer {
	ctx = logger.WithAction(ctx, "ask_question")
	return uc.run(ctx, req, nil)
}

// emitFunc forwards a stream event; an error aborts the pipeline.
type emitFunc func(entity.StreamEvent) error

func (uc *AssistantUsecase) run(ctx context.Context, req *entity.AskRequest, emit emitFunc) *entity.GeneratedAnswer {
	start := time.Now()
	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
		ctx = logger.AddFields(ctx, zap.String("session_id", sessionID))
	}

	// Validating
	verdict := classifier.Classify(req.Query)
	if !verdict.Safe {
		ctxzap.Info(ctx, "query rejected by safety gate", zap.String("category", string(verdict.Category)))
		return uc.finish(uc.terminal(verdict.Reason, entity.OutcomeRejected), sessionID, start)
	}

	// ConnectivityCheck
	if !progress(ctx, emit, ProgressConnecting) {
		return uc.abandoned(ctx, sessionID, start)
	}
	if err := uc.retriever.Ping(ctx); err != nil {
		ctxzap.Error(ctx, "search backend unreachable", zap.Error(err))
		return uc.finish(uc.terminal(ConnectivityMessage, entity.OutcomeFailed), sessionID, start)
	}

	cfg := uc.config(ctx, req)

	// Embedding
	if !progress(ctx, emit, ProgressAnalyzing) {
		return uc.abandoned(ctx, sessionID, start)
	}
	emb := uc.embedder.Embed(ctx, req.Query)
	ctxzap.Debug(ctx, "query embedded", zap.String("model", emb.Model), zap.Int("tokens", emb.TokenCount))

	// Retrieving
	if !progress(ctx, emit, ProgressSearching) {
		return uc.abandoned(ctx, sessionID, start)
	}
	result, err := uc.retriever.Search(ctx, req.Query, emb.Vector, cfg)
	if err != nil {
		ctxzap.Error(ctx, "retrieval failed", zap.Error(err))
		return uc.finish(uc.terminal(ConnectivityMessage, entity.OutcomeFailed), sessionID, start)
	}

	// EmptyFallback
	if result.IsEmpty() {
		ctxzap.Info(ctx, "no evidence found for query")
		answer := uc.terminal(NoResultsMessage(uc.corpus), entity.OutcomeNoEvidence)
		return uc.persistAsync(ctx, req.Query, uc.finish(answer, sessionID, start))
	}
	if result.Mode == entity.RetrievalModeLexical {
		ctxzap.Info(ctx, "answering from text search only", zap.Int("results", result.Len()))
		answer := &entity.GeneratedAnswer{
			Content:            lexicalAnswer(uc.corpus, result.Chunks),
			Confidence:         entity.ConfidenceMedium,
			Citations:          generation.Citations(result.Chunks, uc.corpus.Edition),
			RetrievedDocuments: entity.ToRetrievedDocuments(result.Chunks),
			Outcome:            entity.OutcomeLexicalFallback,
		}
		return uc.persistAsync(ctx, req.Query, uc.finish(answer, sessionID, start))
	}

	// Generating
	history := uc.history(ctx, req, sessionID, cfg.HistoryWindow)
	if !progress(ctx, emit, ProgressGenerating) {
		return uc.abandoned(ctx, sessionID, start)
	}

	var answer *entity.GeneratedAnswer
	if emit == nil {
		answer, err = uc.generator.Generate(ctx, req.Query, result.Chunks, history, cfg)
	} else {
		answer, err = uc.generator.GenerateStream(ctx, req.Query, result.Chunks, history, cfg, func(delta string) error {
			return emit(entity.DeltaEvent(delta))
		})
	}
	if err != nil {
		ctxzap.Error(ctx, "generation failed", zap.Error(err))
		return uc.finish(uc.terminal(GenerationFailureMessage, entity.OutcomeFailed), sessionID, start)
	}

	ctxzap.Info(ctx, "question answered",
		zap.String("confidence", string(answer.Confidence)),
		zap.Int("citations", len(answer.Citations)),
		zap.String("retrieval_mode", string(result.Mode)),
	)

	// Persisting
	return uc.persistAsync(ctx, req.Query, uc.finish(answer, sessionID, start))
}

// config resolves the per-call configuration: defaults, then the complexity
// tier when the caller did not pin retrieval breadth, then overrides.
func (uc *AssistantUsecase) config(ctx context.Context, req *entity.AskRequest) entity.RAGConfig {
	cfg := uc.defaults
	if cfg.AdaptiveRetrieval && !req.Config.HasRetrievalOverrides() {
		c := classifier.Complexity(req.Query)
		cfg = cfg.WithRetrieval(c.SuggestedDocCount, c.SuggestedThreshold)
		ctxzap.Debug(ctx, "adaptive retrieval",
			zap.String("complexity", string(c.Level)),
			zap.Int("score", c.Score),
		)
	}
	return cfg.With(req.Config)
}

func (uc *AssistantUsecase) history(ctx context.Context, req *entity.AskRequest, sessionID string, window int) []entity.Turn {
	if len(req.History) > 0 || sessionID == "" || uc.sessions == nil {
		return req.History
	}
	msgs, err := uc.sessions.GetRecentMessages(ctx, sessionID, window)
	if err != nil {
		ctxzap.Warn(ctx, "failed to load session history", zap.Error(err))
		return nil
	}
	return entity.TurnsFromMessages(msgs)
}

func (uc *AssistantUsecase) terminal(content string, outcome entity.Outcome) *entity.GeneratedAnswer {
	return &entity.GeneratedAnswer{
		Content:            content,
		Confidence:         entity.ConfidenceLow,
		Citations:          []entity.Citation{},
		RetrievedDocuments: []entity.RetrievedDocument{},
		Outcome:            outcome,
	}
}

func (uc *AssistantUsecase) finish(answer *entity.GeneratedAnswer, sessionID string, start time.Time) *entity.GeneratedAnswer {
	answer.ProcessingTime = time.Since(start)
	answer.SessionID = sessionID
	return answer
}

// progress reports false once the stream consumer is gone.
func progress(ctx context.Context, emit emitFunc, marker string) bool {
	if emit == nil {
		return true
	}
	if err := emit(entity.ProgressEvent(marker)); err != nil && ctx.Err() != nil {
		return false
	}
	return true
}

func (uc *AssistantUsecase) abandoned(ctx context.Context, sessionID string, start time.Time) *entity.GeneratedAnswer {
	ctxzap.Info(ctx, "stream consumer gone, stopping pipeline", zap.Error(ctx.Err()))
	return uc.finish(uc.terminal(GenerationFailureMessage, entity.OutcomeFailed), sessionID, start)
}

// Wait blocks until every pending persistence write has finished or ctx is done.
func (uc *AssistantUsecase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for pending writes: %w", ctx.Err())
	}
}
