package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCostRates(t *testing.T) {
	tests := []struct {
		model          string
		wantPrompt     float64
		wantCompletion float64
	}{
		{"google/gemini-2.5-flash", costGeminiFlashPrompt, costGeminiFlashComplete},
		{"google/gemini-2.5-flash-lite", costGeminiFlashLitePrompt, costGeminiFlashLiteComplete},
		{"google/gemini-2.5-pro", costGeminiProPrompt, costGeminiProComplete},
		{"openai/gpt-4o-mini", costGPT4OMiniPrompt, costGPT4OMiniComplete},
		{"gpt-4o", costGPT4OPromptPer1M, costGPT4OCompletionPer1M},
		{"claude-haiku-4-5", costClaudeHaikuPrompt, costClaudeHaikuComplete},
		{"claude-sonnet-4", costClaudeSonnetPrompt, costClaudeSonnetComplete},
		{"unknown-model", costGPT4OMiniPrompt, costGPT4OMiniComplete},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			prompt, completion := getCostRates(tt.model)
			assert.InDelta(t, tt.wantPrompt, prompt, 1e-9)
			assert.InDelta(t, tt.wantCompletion, completion, 1e-9)
		})
	}
}

func TestEstimateCost(t *testing.T) {
	got := estimateCost("google/gemini-2.5-flash", 1_000_000, 1_000_000)
	assert.InDelta(t, costGeminiFlashPrompt+costGeminiFlashComplete, got, 1e-9)

	assert.Zero(t, estimateCost("google/gemini-2.5-flash", 0, 0))
}
