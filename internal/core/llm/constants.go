package llm

import "time"

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
)

// Defaults applied when config leaves a value unset.
const (
	defaultModel            = "google/gemini-2.5-flash"
	defaultTimeout          = 60 * time.Second
	defaultRateLimitRPS     = 10.0
	rateLimiterBurst        = 5
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = time.Minute
	usageStorageTimeout     = 5 * time.Second
	usdToMillicents         = 100000.0 // 1 USD = 100,000 millicents
	maxLoggedContent        = 500
)

// LLMAPIKeyMock selects the built-in mock classifier.
const LLMAPIKeyMock = "mock"

// TaskClassify is the usage task name recorded for sentiment classification.
const TaskClassify = "classify"

// ProviderGateway is the usage provider name for the OpenAI-compatible gateway.
const ProviderGateway = "gateway"

// Request status for metrics.
const (
	StatusSuccess       = "success"
	StatusTransportErr  = "transport_error"
	StatusFormatErr     = "format_error"
	StatusCircuitOpened = "circuit_open"
)

// Log key strings
const (
	logKeyModel   = "model"
	logKeyStatus  = "status"
	logKeyContent = "content"
)
