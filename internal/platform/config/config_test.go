package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN   = "POSTGRES_DSN"
	testEnvDatabaseURL   = "DATABASE_URL"
	testEnvLLMAPIKey     = "LLM_API_KEY"
	testEnvLovableKey    = "LOVABLE_API_KEY"
	testEnvChunkSize     = "BATCH_CHUNK_SIZE"
	testEnvBatchSize     = "BATCH_SIZE"
	testEnvFailurePolicy = "BATCH_FAILURE_POLICY"
)

const testPostgresDSN = "postgres://localhost/test"

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func unsetForTest(t *testing.T, key string) {
	t.Helper()

	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, testEnvPostgresDSN, testEnvDatabaseURL, testEnvLLMAPIKey, testEnvLovableKey)
	t.Setenv(testEnvChunkSize, "5")
	t.Setenv(testEnvFailurePolicy, FailurePolicyAllOrNothing)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.BatchChunkSize)
	assert.Equal(t, FailurePolicyAllOrNothing, cfg.BatchFailurePolicy)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.True(t, cfg.PersistenceStrict)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.AnonymousMode())
}

func TestLoad_Aliases(t *testing.T) {
	t.Setenv(testEnvFailurePolicy, FailurePolicyPartial)
	t.Setenv(testEnvLovableKey, "secret")
	t.Setenv(testEnvDatabaseURL, testPostgresDSN)
	t.Setenv(testEnvBatchSize, "3")

	unsetForTest(t, testEnvPostgresDSN)
	unsetForTest(t, testEnvLLMAPIKey)
	unsetForTest(t, testEnvChunkSize)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.LLMAPIKey)
	assert.Equal(t, testPostgresDSN, cfg.PostgresDSN)
	assert.Equal(t, 3, cfg.BatchChunkSize)
	assert.False(t, cfg.AnonymousMode())
}

func TestValidate(t *testing.T) {
	valid := Config{BatchChunkSize: 5, HistoryLimit: 10, BatchFailurePolicy: FailurePolicyPartial}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero chunk size", mutate: func(c *Config) { c.BatchChunkSize = 0 }, wantErr: errChunkSize},
		{name: "zero history limit", mutate: func(c *Config) { c.HistoryLimit = 0 }, wantErr: errHistoryLimit},
		{name: "negative retries", mutate: func(c *Config) { c.ClassifyMaxRetries = -1 }, wantErr: errMaxRetries},
		{name: "unknown policy", mutate: func(c *Config) { c.BatchFailurePolicy = "best_effort" }, wantErr: errFailurePolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDomainAccessors(t *testing.T) {
	cfg := Config{
		PostgresDSN:            testPostgresDSN,
		LLMModel:               "m",
		BatchChunkSize:         7,
		BatchFailurePolicy:     FailurePolicyPartial,
		ClassifyMaxRetries:     2,
		HistoryLimit:           50,
		PersistenceStrict:      true,
		ClassifyRetryBaseDelay: time.Second,
		SessionIdleTTL:         time.Hour,
	}

	assert.Equal(t, testPostgresDSN, cfg.DatabaseCfg().PostgresDSN)
	assert.Equal(t, "m", cfg.LLMCfg().Model)
	assert.Equal(t, BatchConfig{ChunkSize: 7, FailurePolicy: FailurePolicyPartial, MaxRetries: 2, RetryBaseDelay: time.Second}, cfg.BatchCfg())
	assert.Equal(t, SessionConfig{HistoryLimit: 50, PersistenceStrict: true, IdleTTL: time.Hour}, cfg.SessionCfg())
}
