package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
)

const chatCompletionsPath = "/v1/chat/completions"

type fakeGateway struct {
	calls  atomic.Int32
	status int
	reply  func(req openai.ChatCompletionRequest) openai.ChatCompletionResponse
	seen   atomic.Value
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.calls.Add(1)

	if r.URL.Path != chatCompletionsPath {
		http.NotFound(w, r)
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.seen.Store(req)

	w.Header().Set("Content-Type", "application/json")

	if g.status != 0 && g.status != http.StatusOK {
		w.WriteHeader(g.status)
		_, _ = w.Write([]byte(`{"error":{"message":"gateway exploded","type":"server_error"}}`))

		return
	}

	_ = json.NewEncoder(w).Encode(g.reply(req))
}

func replyWith(content string) func(openai.ChatCompletionRequest) openai.ChatCompletionResponse {
	return func(req openai.ChatCompletionRequest) openai.ChatCompletionResponse {
		return openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
			Usage: openai.Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60},
		}
	}
}

type recordingUsage struct {
	calls   atomic.Int32
	success atomic.Int32
}

func (r *recordingUsage) RecordTokenUsage(_ string, _, _ int, success bool) {
	r.calls.Add(1)

	if success {
		r.success.Add(1)
	}
}

func newTestClient(t *testing.T, gw *fakeGateway, usage UsageRecorder) *openaiClient {
	t.Helper()

	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()

	return newOpenAIClient(config.LLMConfig{
		APIKey:           "test-key",
		BaseURL:          srv.URL + "/v1/",
		Model:            "google/gemini-2.5-flash",
		Timeout:          5 * time.Second,
		RateLimitRPS:     100,
		CircuitThreshold: 2,
		CircuitTimeout:   time.Minute,
	}, usage, &logger)
}

func TestClassify_Success(t *testing.T) {
	gw := &fakeGateway{reply: replyWith("```json\n" + validPayload + "\n```")}
	usage := &recordingUsage{}
	client := newTestClient(t, gw, usage)

	result, err := client.Classify(context.Background(), "I love this")
	require.NoError(t, err)

	assert.Equal(t, domain.LabelPositive, result.Label)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, "I love this", result.Text)
	assert.Equal(t, int32(1), gw.calls.Load())
	assert.Equal(t, int32(1), usage.success.Load())

	req, ok := gw.seen.Load().(openai.ChatCompletionRequest)
	require.True(t, ok)
	assert.Equal(t, "google/gemini-2.5-flash", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, classifySystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "I love this", req.Messages[1].Content)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
}

func TestClassify_InvalidInputSkipsGateway(t *testing.T) {
	gw := &fakeGateway{reply: replyWith(validPayload)}
	client := newTestClient(t, gw, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := client.Classify(context.Background(), text)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}

	assert.Zero(t, gw.calls.Load())
}

func TestClassify_TransportError(t *testing.T) {
	gw := &fakeGateway{status: http.StatusInternalServerError}
	usage := &recordingUsage{}
	client := newTestClient(t, gw, usage)

	_, err := client.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
	assert.NotErrorIs(t, err, apperrors.ErrUpstreamFormat)

	var transportErr *apperrors.UpstreamTransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	assert.Equal(t, int32(0), usage.success.Load())
	assert.Equal(t, int32(1), usage.calls.Load())
}

func TestClassify_FormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply func(openai.ChatCompletionRequest) openai.ChatCompletionResponse
	}{
		{name: "prose answer", reply: replyWith("It sounds positive to me.")},
		{name: "unknown label", reply: replyWith(`{"label":"mixed","scores":{"positive":0.5,"neutral":0.5,"negative":0}}`)},
		{name: "empty content", reply: replyWith("   ")},
		{name: "no choices", reply: func(openai.ChatCompletionRequest) openai.ChatCompletionResponse {
			return openai.ChatCompletionResponse{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeGateway{reply: tt.reply}, nil)

			_, err := client.Classify(context.Background(), "hello")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUpstreamFormat)
			assert.NotErrorIs(t, err, apperrors.ErrUpstreamTransport)
		})
	}
}

func TestClassify_CircuitOpensAfterFailures(t *testing.T) {
	gw := &fakeGateway{status: http.StatusBadGateway}
	client := newTestClient(t, gw, nil)

	for range 2 {
		_, err := client.Classify(context.Background(), "hello")
		require.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
	}

	_, err := client.Classify(context.Background(), "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
	assert.ErrorIs(t, err, apperrors.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(2), gw.calls.Load(), "open circuit must not reach the gateway")
}

func TestClassify_FormatErrorsDoNotTripCircuit(t *testing.T) {
	gw := &fakeGateway{reply: replyWith("not json")}
	client := newTestClient(t, gw, nil)

	for range 4 {
		_, err := client.Classify(context.Background(), "hello")
		require.ErrorIs(t, err, apperrors.ErrUpstreamFormat)
	}

	assert.Equal(t, int32(4), gw.calls.Load())
}

func TestClassify_CancelledContext(t *testing.T) {
	gw := &fakeGateway{reply: replyWith(validPayload)}
	client := newTestClient(t, gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Classify(ctx, "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
}

func TestNew_FallsBackToMock(t *testing.T) {
	for _, key := range []string{"", "  ", LLMAPIKeyMock} {
		c := New(config.LLMConfig{APIKey: key}, nil, nil)

		_, ok := c.(*mockClassifier)
		assert.True(t, ok, "key %q", key)
	}

	c := New(config.LLMConfig{APIKey: "real"}, nil, nil)
	_, ok := c.(*openaiClient)
	assert.True(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "зд...", truncate("здравствуйте", 2))
}
