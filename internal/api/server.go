package api

import (
	"context"
	"net/http"
	"time"

	assistantapi "github.com/futig/nelson-backend/internal/api/assistant"
	"github.com/futig/nelson-backend/internal/api/docs"
	"github.com/futig/nelson-backend/internal/api/middleware"
	sessionapi "github.com/futig/nelson-backend/internal/api/session"
	"github.com/futig/nelson-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// HealthChecker reports whether the search backend is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	assistantHandler *assistantapi.Handler,
	sessionHandler *sessionapi.Handler,
	health HealthChecker,
	cfg RouterConfig,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)             // Recover from panics
	r.Use(chimiddleware.RequestID)             // Add request ID
	r.Use(middleware.Logger(logger))           // Log requests
	r.Use(middleware.CORS(cfg.AllowedOrigins)) // Handle CORS

	// Streaming answers outlive the default timeout
	assistantapi.RegisterStreamRoutes(r, assistantHandler)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

		r.Get("/health", healthHandler(health))

		// Swagger documentation endpoints
		docs.RegisterRoutes(r)

		assistantapi.RegisterRoutes(r, assistantHandler)
		sessionapi.RegisterRoutes(r, sessionHandler)
	})

	return r
}

func healthHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			response.Error(ctx, w, http.StatusServiceUnavailable, "search backend unavailable", err)
			return
		}
		response.Success(w, map[string]string{"status": "healthy"})
	}
}
