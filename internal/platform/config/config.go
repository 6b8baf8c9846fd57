package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Failure policies for batch submissions.
const (
	FailurePolicyAllOrNothing = "all_or_nothing"
	FailurePolicyPartial      = "partial"
)

var (
	errChunkSize     = errors.New("BATCH_CHUNK_SIZE must be positive")
	errHistoryLimit  = errors.New("HISTORY_LIMIT must be positive")
	errFailurePolicy = errors.New("BATCH_FAILURE_POLICY must be all_or_nothing or partial")
	errMaxRetries    = errors.New("CLASSIFY_MAX_RETRIES must not be negative")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`

	// Empty DSN runs the service in anonymous mode: everything stays in memory.
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Classifier gateway
	LLMAPIKey           string        `env:"LLM_API_KEY"`
	LLMBaseURL          string        `env:"LLM_BASE_URL" envDefault:"https://ai.gateway.lovable.dev/v1"`
	LLMModel            string        `env:"LLM_MODEL" envDefault:"google/gemini-2.5-flash"`
	LLMTimeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMRateLimitRPS     float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"10"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Batch orchestration
	BatchChunkSize         int           `env:"BATCH_CHUNK_SIZE" envDefault:"5"`
	BatchFailurePolicy     string        `env:"BATCH_FAILURE_POLICY" envDefault:"all_or_nothing"`
	ClassifyMaxRetries     int           `env:"CLASSIFY_MAX_RETRIES" envDefault:"0"`
	ClassifyRetryBaseDelay time.Duration `env:"CLASSIFY_RETRY_BASE_DELAY" envDefault:"500ms"`

	// Dashboard sessions
	HistoryLimit      int           `env:"HISTORY_LIMIT" envDefault:"1000"`
	PersistenceStrict bool          `env:"PERSISTENCE_STRICT" envDefault:"true"`
	UploadMaxBytes    int64         `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
	SessionIdleTTL    time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`

	// API identity
	AuthSigningSecret string        `env:"AUTH_SIGNING_SECRET"`
	AuthTokenTTL      time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"720h"`
	CORSAllowedOrigin string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the orchestrator and sessions cannot work with.
func (c *Config) Validate() error {
	if c.BatchChunkSize <= 0 {
		return errChunkSize
	}

	if c.HistoryLimit <= 0 {
		return errHistoryLimit
	}

	if c.ClassifyMaxRetries < 0 {
		return errMaxRetries
	}

	switch c.BatchFailurePolicy {
	case FailurePolicyAllOrNothing, FailurePolicyPartial:
		return nil
	default:
		return fmt.Errorf("%w: %q", errFailurePolicy, c.BatchFailurePolicy)
	}
}

// AnonymousMode reports whether the service runs without a backing store.
func (c *Config) AnonymousMode() bool {
	return strings.TrimSpace(c.PostgresDSN) == ""
}

// applyAliases honours the variable names used by earlier deployments of the
// dashboard's edge function.
func applyAliases(cfg *Config) {
	if !hasEnv("LLM_API_KEY") {
		setStringFromEnv("LOVABLE_API_KEY", &cfg.LLMAPIKey)
	}

	if !hasEnv("POSTGRES_DSN") {
		setStringFromEnv("DATABASE_URL", &cfg.PostgresDSN)
	}

	if !hasEnv("BATCH_CHUNK_SIZE") {
		setIntFromEnv("BATCH_SIZE", &cfg.BatchChunkSize)
	}

	if !hasEnv("LLM_TIMEOUT") {
		setDurationFromEnv("LLM_REQUEST_TIMEOUT", &cfg.LLMTimeout)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setDurationFromEnv(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
