// Package llm is the classifier gateway adapter: it sends one text to an
// OpenAI-compatible chat completion endpoint and normalizes the model's JSON
// answer into a domain.SentimentResult.
package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
)

// Classifier turns one non-empty text into a SentimentResult.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.SentimentResult, error)
}

// UsageStore persists token usage. It is satisfied by the Postgres store.
type UsageStore interface {
	IncrementLLMUsage(ctx context.Context, provider, model, task string, promptTokens, completionTokens int, cost float64) error
}

// New returns the gateway client, or the mock classifier when no API key is configured.
func New(cfg config.LLMConfig, usage UsageStore, logger *zerolog.Logger) Classifier {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" || key == LLMAPIKeyMock {
		logger.Warn().Msg("LLM_API_KEY not set, using mock classifier")

		return NewMock()
	}

	recorder := NoopUsageRecorder()
	if usage != nil {
		recorder = NewUsageRecorder(usage, logger)
	}

	return NewOpenAI(cfg, recorder, logger)
}
