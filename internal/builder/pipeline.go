package builder

import (
	"context"
	"fmt"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/integration/embedding"
	"github.com/futig/nelson-backend/internal/integration/llm"
	"github.com/futig/nelson-backend/internal/pkg/cache"
	"github.com/futig/nelson-backend/internal/pkg/formatter"
	"github.com/futig/nelson-backend/internal/pkg/textproc"
	"github.com/futig/nelson-backend/internal/repository"
	"github.com/futig/nelson-backend/internal/telegram/state"
	"github.com/futig/nelson-backend/internal/usecase/assistant"
	embeddinguc "github.com/futig/nelson-backend/internal/usecase/embedding"
	"github.com/futig/nelson-backend/internal/usecase/generation"
	"github.com/futig/nelson-backend/internal/usecase/retrieval"
	"github.com/futig/nelson-backend/internal/usecase/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pipeline holds everything both binaries share: storage, connectors and
// the use cases on top of them.
type pipeline struct {
	retriever     *retrieval.Retriever
	telegramState state.Storage
	assistant     *assistant.AssistantUsecase
	sessions      *session.SessionUsecase

	closers []func()
}

// close releases resources in reverse order of acquisition
func (p *pipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (p *pipeline, err error) {
	p = &pipeline{}
	defer func() {
		if err != nil {
			p.close()
		}
	}()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		logger.Info("Running database migrations")
		if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsSource); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		db, err = setupDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}
		p.closers = append(p.closers, db.Close)
	}

	embedder, err := buildEmbedder(ctx, p, cfg, logger)
	if err != nil {
		return nil, err
	}

	var chunks repository.ChunkRepository
	switch cfg.SearchBackend {
	case config.SearchBackendLocal:
		memory, err := buildLocalIndex(ctx, cfg, embedder, logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() { _ = memory.Close() })
		chunks = memory
	default:
		chunks = repository.NewChunkPostgres(db)
	}
	p.retriever = retrieval.NewRetriever(chunks)

	var sessionRepo repository.SessionRepository
	if db != nil {
		sessionRepo = repository.NewSessionPostgres(db)
		p.telegramState = repository.NewTelegramStatePostgres(db)
	} else {
		logger.Warn("DATABASE_URL is not set, chat history is kept in memory")
		sessionRepo = repository.NewSessionMemory()
		p.telegramState = repository.NewTelegramStateMemory()
	}
	logger.Info("Repositories initialized", zap.String("search_backend", cfg.SearchBackend))

	corpus := cfg.CorpusCfg.ToEntity()

	var llmConnector generation.LLMConnector
	if cfg.EnableMocks {
		logger.Info("Using mock LLM connector")
		llmConnector = llm.NewMockConnector(corpus, logger)
	} else {
		llmConnector = llm.NewConnector(cfg.LLMCfg, logger)
	}

	p.assistant = assistant.NewUsecase(
		embedder,
		p.retriever,
		generation.NewGenerator(llmConnector, corpus),
		sessionRepo,
		assistant.Options{
			Defaults:       cfg.RAGCfg.ToEntity(),
			Corpus:         corpus,
			PersistTimeout: cfg.PersistTimeout,
			PersistRetry:   &cfg.PersistRetry,
		},
	)
	p.sessions = session.NewUsecase(sessionRepo, formatter.NewFactory(), corpus)
	logger.Info("Use cases initialized")

	return p, nil
}

func buildEmbedder(ctx context.Context, p *pipeline, cfg *config.Config, logger *zap.Logger) (*embeddinguc.Generator, error) {
	ecfg := cfg.EmbeddingCfg

	var backend embeddinguc.Backend
	switch {
	case cfg.EnableMocks:
		logger.Info("Using mock embedding connector")
		backend = embedding.NewMockConnector(ecfg.Dimension, logger)
	case ecfg.Provider == config.EmbeddingProviderOpenAI:
		backend = embedding.NewOpenAIConnector(ecfg)
	default:
		backend = embedding.NewConnector(ecfg, logger)
	}

	var vectors embeddinguc.Cache
	if cfg.RedisURL != "" {
		redis, err := cache.NewRedisFromURL(ctx, cfg.RedisURL, ecfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		p.closers = append(p.closers, func() { _ = redis.Close() })
		vectors = redis
	} else {
		vectors = cache.NewMemory(ecfg.CacheTTL)
	}

	logger.Info("Embedding generator initialized",
		zap.String("model", backend.Model()),
		zap.Int("dimension", ecfg.Dimension),
		zap.Bool("redis_cache", cfg.RedisURL != ""),
	)
	return embeddinguc.NewGenerator(backend, vectors, ecfg.Dimension, &ecfg.Retry), nil
}

// buildLocalIndex loads the corpus file and indexes it in memory.
func buildLocalIndex(ctx context.Context, cfg *config.Config, embedder *embeddinguc.Generator, logger *zap.Logger) (*repository.ChunkMemory, error) {
	file, err := repository.ReadCorpusFile(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	chunks, err := repository.LoadCorpus(ctx, file, textproc.NewChunker(), embedder)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	memory, err := repository.NewChunkMemory(chunks)
	if err != nil {
		return nil, fmt.Errorf("index corpus: %w", err)
	}

	logger.Info("Local corpus indexed",
		zap.String("path", cfg.CorpusPath),
		zap.Int("chunks", memory.Len()),
	)
	return memory, nil
}
