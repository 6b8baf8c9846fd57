package db

import (
	"context"
	"fmt"
	"time"
)

// LLMUsageSummary aggregates classifier token usage over a period.
type LLMUsageSummary struct {
	Since                 time.Time             `json:"since"`
	TotalPromptTokens     int64                 `json:"totalPromptTokens"`
	TotalCompletionTokens int64                 `json:"totalCompletionTokens"`
	TotalRequests         int64                 `json:"totalRequests"`
	TotalCostUSD          float64               `json:"totalCostUsd"`
	ByModel               map[string]ModelUsage `json:"byModel"`
}

// ModelUsage holds usage for a single model.
type ModelUsage struct {
	Model            string  `json:"model"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	RequestCount     int64   `json:"requestCount"`
	CostUSD          float64 `json:"costUsd"`
}

// IncrementLLMUsage increments LLM usage counters for the current day.
func (db *DB) IncrementLLMUsage(ctx context.Context, provider, model, task string, promptTokens, completionTokens int, cost float64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO llm_usage (date, provider, model, task, prompt_tokens, completion_tokens, request_count, cost_usd)
		VALUES (CURRENT_DATE, $1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (date, provider, model, task)
		DO UPDATE SET
			prompt_tokens = llm_usage.prompt_tokens + EXCLUDED.prompt_tokens,
			completion_tokens = llm_usage.completion_tokens + EXCLUDED.completion_tokens,
			request_count = llm_usage.request_count + 1,
			cost_usd = llm_usage.cost_usd + EXCLUDED.cost_usd,
			updated_at = now()
	`, provider, model, task, promptTokens, completionTokens, cost)
	if err != nil {
		return fmt.Errorf("increment llm usage: %w", err)
	}

	return nil
}

// GetLLMUsageSince returns LLM usage recorded on or after the day of since.
func (db *DB) GetLLMUsageSince(ctx context.Context, since time.Time) (*LLMUsageSummary, error) {
	day := since.UTC().Truncate(HoursPerDay)

	rows, err := db.Pool.Query(ctx, `
		SELECT model,
			   COALESCE(SUM(prompt_tokens), 0)::bigint,
			   COALESCE(SUM(completion_tokens), 0)::bigint,
			   COALESCE(SUM(request_count), 0)::bigint,
			   COALESCE(SUM(cost_usd), 0)::float8
		FROM llm_usage
		WHERE date >= $1::date
		GROUP BY model
	`, day)
	if err != nil {
		return nil, fmt.Errorf("get llm usage: %w", err)
	}
	defer rows.Close()

	summary := &LLMUsageSummary{
		Since:   day,
		ByModel: make(map[string]ModelUsage),
	}

	for rows.Next() {
		var u ModelUsage

		if err := rows.Scan(&u.Model, &u.PromptTokens, &u.CompletionTokens, &u.RequestCount, &u.CostUSD); err != nil {
			return nil, fmt.Errorf("scan llm usage row: %w", err)
		}

		summary.TotalPromptTokens += u.PromptTokens
		summary.TotalCompletionTokens += u.CompletionTokens
		summary.TotalRequests += u.RequestCount
		summary.TotalCostUSD += u.CostUSD
		summary.ByModel[u.Model] = u
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate llm usage rows: %w", rows.Err())
	}

	return summary, nil
}
