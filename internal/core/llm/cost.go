package llm

import "strings"

// Cost per 1M tokens (in USD) for the models the gateway typically routes to.
// These are approximate costs and should be updated as pricing changes.
const (
	costGPT4OPromptPer1M     = 2.50
	costGPT4OCompletionPer1M = 10.00
	costGPT4OMiniPrompt      = 0.15
	costGPT4OMiniComplete    = 0.60

	costGeminiFlashLitePrompt   = 0.075
	costGeminiFlashLiteComplete = 0.30
	costGeminiFlashPrompt       = 0.30
	costGeminiFlashComplete     = 2.50
	costGeminiProPrompt         = 1.25
	costGeminiProComplete       = 10.00

	costClaudeHaikuPrompt    = 1.00
	costClaudeHaikuComplete  = 5.00
	costClaudeSonnetPrompt   = 3.00
	costClaudeSonnetComplete = 15.00

	tokensPerMillion = 1000000.0
)

// estimateCost calculates an estimated cost in USD for a request.
func estimateCost(model string, promptTokens, completionTokens int) float64 {
	promptCost, completionCost := getCostRates(model)

	promptUSD := float64(promptTokens) * promptCost / tokensPerMillion
	completionUSD := float64(completionTokens) * completionCost / tokensPerMillion

	return promptUSD + completionUSD
}

// getCostRates returns the cost per 1M tokens for prompt and completion.
// Gateway model ids may carry a vendor prefix ("google/gemini-2.5-flash").
func getCostRates(model string) (promptRate, completionRate float64) {
	m := strings.ToLower(model)

	switch {
	case strings.Contains(m, "gemini") && strings.Contains(m, "flash-lite"):
		return costGeminiFlashLitePrompt, costGeminiFlashLiteComplete
	case strings.Contains(m, "gemini") && strings.Contains(m, "pro"):
		return costGeminiProPrompt, costGeminiProComplete
	case strings.Contains(m, "gemini"):
		return costGeminiFlashPrompt, costGeminiFlashComplete
	case strings.Contains(m, "gpt-4o-mini"):
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	case strings.Contains(m, "gpt-4"):
		return costGPT4OPromptPer1M, costGPT4OCompletionPer1M
	case strings.Contains(m, "haiku"):
		return costClaudeHaikuPrompt, costClaudeHaikuComplete
	case strings.Contains(m, "sonnet"), strings.Contains(m, "opus"):
		return costClaudeSonnetPrompt, costClaudeSonnetComplete
	default:
		// Default to GPT-4o-mini rates
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	}
}
