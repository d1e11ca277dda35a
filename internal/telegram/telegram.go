package telegram

import (
	"context"
	"fmt"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/telegram/bot"
	"github.com/futig/nelson-backend/internal/telegram/handlers"
	"github.com/futig/nelson-backend/internal/telegram/keyboard"
	"github.com/futig/nelson-backend/internal/telegram/state"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(
	cfg *config.TelegramConfig,
	corpus entity.Corpus,
	storage state.Storage,
	assistantUC handlers.AssistantUsecase,
	sessionUC handlers.SessionUsecase,
	logger *zap.Logger,
) (Bot, error) {
	b, err := bot.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	registerHandlers(b, corpus, state.NewManager(storage), assistantUC, sessionUC)

	logger.Info("telegram bot initialized successfully")

	return b, nil
}

// registerHandlers registers all handlers with the bot
func registerHandlers(
	b *bot.Bot,
	corpus entity.Corpus,
	stateManager *state.Manager,
	assistantUC handlers.AssistantUsecase,
	sessionUC handlers.SessionUsecase,
) {
	sender := b.GetSender()
	kb := keyboard.NewBuilder()

	b.RegisterHandler(handlers.NewCommandHandler(sender, stateManager, sessionUC, kb, corpus))
	b.RegisterHandler(handlers.NewAskHandler(b.GetAPI(), sender, stateManager, assistantUC, sessionUC, kb, b.GetConfig().EditInterval))
	b.RegisterHandler(handlers.NewCallbackHandler(sender, stateManager, sessionUC))
}
