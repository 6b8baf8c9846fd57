package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
)

type openaiClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	circuit     *CircuitBreaker
	usage       UsageRecorder
	now         func() time.Time
}

// NewOpenAI creates a classifier backed by an OpenAI-compatible chat completion endpoint.
func NewOpenAI(cfg config.LLMConfig, usage UsageRecorder, logger *zerolog.Logger) Classifier {
	return newOpenAIClient(cfg, usage, logger)
}

func newOpenAIClient(cfg config.LLMConfig, usage UsageRecorder, logger *zerolog.Logger) *openaiClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}

	if usage == nil {
		usage = NoopUsageRecorder()
	}

	return &openaiClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		timeout:     timeout,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		circuit:     NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, logger),
		usage:       usage,
		now:         time.Now,
	}
}

func (c *openaiClient) Classify(ctx context.Context, text string) (domain.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.SentimentResult{}, fmt.Errorf("%w: text is required", apperrors.ErrInvalidInput)
	}

	if err := c.circuit.CheckCircuit(); err != nil {
		observability.ClassifyRequests.WithLabelValues(c.model, StatusCircuitOpened).Inc()

		return domain.SentimentResult{}, &apperrors.UpstreamTransportError{Err: err}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return domain.SentimentResult{}, &apperrors.UpstreamTransportError{Err: fmt.Errorf(errRateLimiter, err)}
	}

	content, err := c.complete(ctx, text)
	if err != nil {
		if errors.Is(err, apperrors.ErrUpstreamFormat) {
			c.circuit.RecordSuccess()
			observability.ClassifyRequests.WithLabelValues(c.model, StatusFormatErr).Inc()

			return domain.SentimentResult{}, err
		}

		c.circuit.RecordFailure()
		observability.ClassifyRequests.WithLabelValues(c.model, StatusTransportErr).Inc()

		return domain.SentimentResult{}, err
	}

	c.circuit.RecordSuccess()

	result, err := parseClassification(text, content, c.now())
	if err != nil {
		observability.ClassifyRequests.WithLabelValues(c.model, StatusFormatErr).Inc()
		c.logger.Error().Err(err).Str(logKeyContent, truncate(content, maxLoggedContent)).Msg("failed to parse classifier response")

		return domain.SentimentResult{}, err
	}

	observability.ClassifyRequests.WithLabelValues(c.model, StatusSuccess).Inc()
	observability.ClassifyLabels.WithLabelValues(string(result.Label)).Inc()

	return result, nil
}

// complete performs the chat completion call and returns the first choice's content.
func (c *openaiClient) complete(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: classifySystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	observability.ClassifyDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		status := statusCode(err)
		c.usage.RecordTokenUsage(c.model, 0, 0, false)
		c.logger.Error().Err(err).Int(logKeyStatus, status).Str(logKeyModel, c.model).Msg("classifier gateway error")

		return "", &apperrors.UpstreamTransportError{StatusCode: status, Err: fmt.Errorf(errOpenAIChatCompletion, err)}
	}

	c.usage.RecordTokenUsage(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &apperrors.UpstreamFormatError{Reason: "no response from classifier"}
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug().Str(logKeyContent, truncate(content, maxLoggedContent)).Msg("classifier response")

	return content, nil
}

// statusCode extracts the HTTP status carried by go-openai errors, or 0.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	return 0
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)

	return string(runes[:max]) + "..."
}
