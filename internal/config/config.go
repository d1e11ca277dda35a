package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/futig/nelson-backend/internal/entity"
	pkgRetry "github.com/futig/nelson-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

const (
	SearchBackendPostgres = "postgres"
	SearchBackendLocal    = "local"

	EmbeddingProviderFeatureExtraction = "feature-extraction"
	EmbeddingProviderOpenAI            = "openai"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string        `env:"SERVER_ADDR" envDefault:":8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database configuration, required for the postgres search backend
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	MigrationsSource    string        `env:"MIGRATIONS_SOURCE" envDefault:"file://internal/repository/migrations"`

	// Search backend: postgres (pgvector) or local (JSON corpus + bleve)
	SearchBackend string `env:"SEARCH_BACKEND" envDefault:"postgres"`
	CorpusPath    string `env:"CORPUS_PATH" envDefault:"data/corpus.json"`

	// Optional shared embedding cache
	RedisURL string `env:"REDIS_URL"`

	// External service configurations
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`

	// Pipeline defaults
	RAGCfg    RAGConfig    `envPrefix:"RAG_"`
	CorpusCfg CorpusConfig `envPrefix:"CORPUS_"`

	// Chat history writes run after the answer is returned
	PersistTimeout time.Duration        `env:"PERSIST_TIMEOUT" envDefault:"10s"`
	PersistRetry   pkgRetry.RetryConfig `envPrefix:"PERSIST_RETRY_"`

	// Request validation limits
	ValidationCfg ValidationConfig `envPrefix:"VALIDATION_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string        `env:"BOT_TOKEN"`
	UpdateTimeout      int           `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" envDefault:"3"`
	EditInterval       time.Duration `env:"EDIT_INTERVAL" envDefault:"1200ms"`
	ShutdownTimeout    int           `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

type ValidationConfig struct {
	MaxQueryLength  int `env:"MAX_QUERY_LENGTH" envDefault:"2000"`
	MaxTitleLength  int `env:"MAX_TITLE_LENGTH" envDefault:"200"`
	MaxHistoryTurns int `env:"MAX_HISTORY_TURNS" envDefault:"50"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider  string               `env:"PROVIDER" envDefault:"feature-extraction"`
	Model     string               `env:"MODEL" envDefault:"sentence-transformers/all-MiniLM-L6-v2"`
	Endpoint  string               `env:"ENDPOINT" envDefault:"/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2"`
	Dimension int                  `env:"DIMENSION" envDefault:"384"`
	CacheTTL  time.Duration        `env:"CACHE_TTL" envDefault:"1h"`
	Retry     pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type LLMConfig struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey         string        `env:"API_KEY"`
	Model          string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	RequestTimeout time.Duration `env:"TIMEOUT" envDefault:"120s"`
}

type RAGConfig struct {
	MaxDocuments        int     `env:"MAX_DOCUMENTS" envDefault:"5"`
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.7"`
	Temperature         float32 `env:"TEMPERATURE" envDefault:"0.1"`
	TopP                float32 `env:"TOP_P" envDefault:"0.9"`
	MaxTokens           int     `env:"MAX_TOKENS" envDefault:"2048"`
	HistoryWindow       int     `env:"HISTORY_WINDOW" envDefault:"6"`
	UseHybrid           bool    `env:"USE_HYBRID" envDefault:"true"`
	AdaptiveRetrieval   bool    `env:"ADAPTIVE_RETRIEVAL" envDefault:"true"`
	ContextCharBudget   int     `env:"CONTEXT_CHAR_BUDGET" envDefault:"24000"`
}

// ToEntity converts env settings to the immutable pipeline defaults.
func (c RAGConfig) ToEntity() entity.RAGConfig {
	return entity.RAGConfig{
		MaxDocuments:        c.MaxDocuments,
		SimilarityThreshold: c.SimilarityThreshold,
		Temperature:         c.Temperature,
		TopP:                c.TopP,
		MaxTokens:           c.MaxTokens,
		HistoryWindow:       c.HistoryWindow,
		UseHybrid:           c.UseHybrid,
		AdaptiveRetrieval:   c.AdaptiveRetrieval,
		ContextCharBudget:   c.ContextCharBudget,
	}
}

type CorpusConfig struct {
	Name      string `env:"NAME" envDefault:"Nelson Textbook of Pediatrics"`
	ShortName string `env:"SHORT_NAME" envDefault:"Nelson"`
	Edition   string `env:"EDITION" envDefault:"22nd Edition"`
}

func (c CorpusConfig) ToEntity() entity.Corpus {
	return entity.Corpus{Name: c.Name, ShortName: c.ShortName, Edition: c.Edition}
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"20s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL" envDefault:"https://api-inference.huggingface.co"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.Environment = *envFlag

	return cfg, nil
}

// Parse reads the configuration from the process environment and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	switch cfg.SearchBackend {
	case SearchBackendPostgres:
		if cfg.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when SEARCH_BACKEND=postgres")
		}
	case SearchBackendLocal:
		if cfg.CorpusPath == "" {
			errors = append(errors, "CORPUS_PATH is required when SEARCH_BACKEND=local")
		}
	default:
		errors = append(errors, fmt.Sprintf("SEARCH_BACKEND must be postgres or local, got %q", cfg.SearchBackend))
	}

	switch cfg.EmbeddingCfg.Provider {
	case EmbeddingProviderFeatureExtraction, EmbeddingProviderOpenAI:
	default:
		errors = append(errors, fmt.Sprintf("EMBEDDING_PROVIDER must be feature-extraction or openai, got %q", cfg.EmbeddingCfg.Provider))
	}

	if cfg.EmbeddingCfg.Dimension < 16 || cfg.EmbeddingCfg.Dimension > 4096 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_DIMENSION must be between 16 and 4096, got %d", cfg.EmbeddingCfg.Dimension))
	}

	// Validate pipeline defaults
	if cfg.RAGCfg.MaxDocuments < 1 || cfg.RAGCfg.MaxDocuments > 20 {
		errors = append(errors, fmt.Sprintf("RAG_MAX_DOCUMENTS must be between 1 and 20, got %d", cfg.RAGCfg.MaxDocuments))
	}

	if cfg.RAGCfg.SimilarityThreshold < 0 || cfg.RAGCfg.SimilarityThreshold > 1 {
		errors = append(errors, fmt.Sprintf("RAG_SIMILARITY_THRESHOLD must be between 0 and 1, got %v", cfg.RAGCfg.SimilarityThreshold))
	}

	if cfg.RAGCfg.Temperature < 0 || cfg.RAGCfg.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("RAG_TEMPERATURE must be between 0 and 2, got %v", cfg.RAGCfg.Temperature))
	}

	if cfg.RAGCfg.MaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("RAG_MAX_TOKENS must be positive, got %d", cfg.RAGCfg.MaxTokens))
	}

	if cfg.RAGCfg.ContextCharBudget < 1000 {
		errors = append(errors, fmt.Sprintf("RAG_CONTEXT_CHAR_BUDGET must be at least 1000, got %d", cfg.RAGCfg.ContextCharBudget))
	}

	if cfg.ValidationCfg.MaxQueryLength < 1 {
		errors = append(errors, fmt.Sprintf("VALIDATION_MAX_QUERY_LENGTH must be positive, got %d", cfg.ValidationCfg.MaxQueryLength))
	}

	// Validate Telegram configuration
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout))
	}

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
