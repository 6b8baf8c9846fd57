package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// LLMConfig holds classifier gateway settings.
type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	RateLimitRPS     float64
	CircuitThreshold int
	CircuitTimeout   time.Duration
}

// BatchConfig holds orchestrator settings.
type BatchConfig struct {
	ChunkSize      int
	FailurePolicy  string
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// SessionConfig holds dashboard session settings.
type SessionConfig struct {
	HistoryLimit      int
	PersistenceStrict bool
	IdleTTL           time.Duration
}

// DatabaseCfg returns the database settings.
func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN:       c.PostgresDSN,
		MaxConnections:    c.DBMaxConnections,
		MinConnections:    c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
	}
}

// LLMCfg returns the classifier gateway settings.
func (c *Config) LLMCfg() LLMConfig {
	return LLMConfig{
		APIKey:           c.LLMAPIKey,
		BaseURL:          c.LLMBaseURL,
		Model:            c.LLMModel,
		Timeout:          c.LLMTimeout,
		RateLimitRPS:     c.LLMRateLimitRPS,
		CircuitThreshold: c.LLMCircuitThreshold,
		CircuitTimeout:   c.LLMCircuitTimeout,
	}
}

// BatchCfg returns the orchestrator settings.
func (c *Config) BatchCfg() BatchConfig {
	return BatchConfig{
		ChunkSize:      c.BatchChunkSize,
		FailurePolicy:  c.BatchFailurePolicy,
		MaxRetries:     c.ClassifyMaxRetries,
		RetryBaseDelay: c.ClassifyRetryBaseDelay,
	}
}

// SessionCfg returns the dashboard session settings.
func (c *Config) SessionCfg() SessionConfig {
	return SessionConfig{
		HistoryLimit:      c.HistoryLimit,
		PersistenceStrict: c.PersistenceStrict,
		IdleTTL:           c.SessionIdleTTL,
	}
}
