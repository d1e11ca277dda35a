package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/nelson-backend/internal/api"
	assistantapi "github.com/futig/nelson-backend/internal/api/assistant"
	sessionapi "github.com/futig/nelson-backend/internal/api/session"
	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/pkg/validator"
	"github.com/futig/nelson-backend/internal/telegram"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	requestValidator := validator.NewValidator(cfg.ValidationCfg)

	// Setup API handlers
	assistantHandler := assistantapi.NewHandler(p.assistant, p.retriever, requestValidator)
	sessionHandler := sessionapi.NewHandler(p.sessions, requestValidator)
	logger.Info("API handlers initialized")

	router := api.SetupRouter(assistantHandler, sessionHandler, p.retriever, api.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)
	logger.Info("HTTP router configured")

	// No WriteTimeout: /ask/stream responses stay open while the answer streams.
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:          server,
		pipeline:        p,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot. The returned
// cleanup waits for pending history writes and releases storage.
func BuildTelegramBot() (telegram.Bot, func(), *zap.Logger, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	bot, err := telegram.NewBot(
		&cfg.TelegramCfg,
		cfg.CorpusCfg.ToEntity(),
		p.telegramState,
		p.assistant,
		p.sessions,
		logger,
	)
	if err != nil {
		p.close()
		return nil, nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	cleanup := func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout)
		defer cancel()
		if err := p.assistant.Wait(waitCtx); err != nil {
			logger.Warn("Pending history writes abandoned", zap.Error(err))
		}
		p.close()
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, cleanup, logger, nil
}
