package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
)

// UsageRecorder records token usage metrics for LLM requests.
// This interface allows for dependency injection and easier testing.
type UsageRecorder interface {
	RecordTokenUsage(model string, promptTokens, completionTokens int, success bool)
}

// usageRecorder implements UsageRecorder with metrics and persistence.
type usageRecorder struct {
	usageStore UsageStore
	logger     *zerolog.Logger
}

// NewUsageRecorder creates a new UsageRecorder with the given dependencies.
func NewUsageRecorder(usageStore UsageStore, logger *zerolog.Logger) UsageRecorder {
	return &usageRecorder{
		usageStore: usageStore,
		logger:     logger,
	}
}

// RecordTokenUsage records token usage metrics for an LLM request.
func (r *usageRecorder) RecordTokenUsage(model string, promptTokens, completionTokens int, success bool) {
	if !success {
		return
	}

	if promptTokens > 0 {
		observability.LLMTokensPrompt.WithLabelValues(model).Add(float64(promptTokens))
	}

	if completionTokens > 0 {
		observability.LLMTokensCompletion.WithLabelValues(model).Add(float64(completionTokens))
	}

	cost := estimateCost(model, promptTokens, completionTokens)
	if cost > 0 {
		observability.LLMEstimatedCost.WithLabelValues(model).Add(cost * usdToMillicents)
	}

	r.persistUsageToDatabase(model, promptTokens, completionTokens, cost)
}

// persistUsageToDatabase stores usage in the database asynchronously.
func (r *usageRecorder) persistUsageToDatabase(model string, promptTokens, completionTokens int, cost float64) {
	if r.usageStore == nil {
		return
	}

	// Usage storage is best-effort and shouldn't fail the classification if it fails.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), usageStorageTimeout)
		defer cancel()

		if err := r.usageStore.IncrementLLMUsage(ctx, ProviderGateway, model, TaskClassify, promptTokens, completionTokens, cost); err != nil {
			r.logger.Debug().Err(err).Msg("failed to persist llm usage")
		}
	}()
}

// noopUsageRecorder is a no-op implementation for testing or when usage tracking is disabled.
type noopUsageRecorder struct{}

// NoopUsageRecorder returns a no-op implementation of UsageRecorder.
func NoopUsageRecorder() UsageRecorder {
	return &noopUsageRecorder{}
}

// RecordTokenUsage does nothing (no-op implementation).
func (r *noopUsageRecorder) RecordTokenUsage(_ string, _, _ int, _ bool) {
	// No-op
}
