package middleware

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	warningInterval   = 30 * time.Second
	cleanupInterval   = 10 * time.Minute
	inactiveThreshold = time.Hour
)

// visitor tracks rate limit state for a single user
type visitor struct {
	limiter       *rate.Limiter
	lastSeen      time.Time
	warningsSent  int
	lastWarningAt time.Time
}

// RateLimiterMiddleware implements token bucket rate limiting per user
type RateLimiterMiddleware struct {
	mu       sync.Mutex
	visitors map[int64]*visitor
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
	bot      Sender
	now      func() time.Time
}

// NewRateLimiterMiddleware creates a new rate limiter middleware
func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	bot Sender,
) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		visitors: make(map[int64]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burstSize,
		logger:   logger,
		bot:      bot,
		now:      time.Now,
	}
}

// Run removes users that have been inactive for an hour until ctx is done
func (rl *RateLimiterMiddleware) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// Handle processes the update through rate limiting
func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	userID, chatID := updateIDs(update)
	if userID == 0 {
		// Unknown update type, allow it
		next(update)
		return
	}

	if !rl.allow(userID, chatID) {
		rl.logger.Warn("rate limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID),
		)
		return
	}

	next(update)
}

// allow checks if request is allowed under rate limit
func (rl *RateLimiterMiddleware) allow(userID, chatID int64) bool {
	rl.mu.Lock()
	now := rl.now()
	v, ok := rl.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[userID] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		v.warningsSent = 0
		rl.mu.Unlock()
		return true
	}

	warn := now.Sub(v.lastWarningAt) > warningInterval
	if warn {
		v.warningsSent++
		v.lastWarningAt = now
	}
	count := v.warningsSent
	rl.mu.Unlock()

	if warn {
		rl.sendWarning(chatID, count)
	}
	return false
}

// sendWarning sends a warning message to the user
func (rl *RateLimiterMiddleware) sendWarning(chatID int64, warningCount int) {
	if chatID == 0 || rl.bot == nil {
		return
	}

	text := "⚠️ Too many requests. Please wait a little."
	if warningCount >= 2 {
		text = "🛑 You are sending messages too quickly. Please wait a minute before asking again."
	}

	if _, err := rl.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func (rl *RateLimiterMiddleware) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, v := range rl.visitors {
		if now.Sub(v.lastSeen) > inactiveThreshold {
			delete(rl.visitors, userID)
			rl.logger.Debug("cleaned up inactive user from rate limiter",
				zap.Int64("user_id", userID),
			)
		}
	}
}
