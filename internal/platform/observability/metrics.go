package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClassifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_classify_requests_total",
		Help: "Total number of classifier gateway calls by outcome",
	}, []string{"model", "status"})

	ClassifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentiment_classify_duration_seconds",
		Help:    "Duration of classifier gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	ClassifyLabels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_classify_labels_total",
		Help: "Total number of classified texts by label",
	}, []string{"label"})

	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_llm_tokens_prompt_total",
		Help: "Total number of prompt tokens used",
	}, []string{"model"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_llm_tokens_completion_total",
		Help: "Total number of completion tokens used",
	}, []string{"model"})

	LLMEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_llm_estimated_cost_millicents_total",
		Help: "Estimated LLM cost in millicents (0.001 cents)",
	}, []string{"model"})

	LLMCircuitOpen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentiment_llm_circuit_open_total",
		Help: "Number of times the classifier circuit breaker opened",
	})

	BatchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_batch_runs_total",
		Help: "Total number of orchestrator runs by outcome",
	}, []string{"status"})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentiment_batch_size_texts",
		Help:    "Number of texts per orchestrator run",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	ChunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentiment_batch_chunk_duration_seconds",
		Help:    "Duration of one chunk barrier",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	ClassifyRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentiment_classify_retries_total",
		Help: "Number of classifier calls retried by the orchestrator",
	})

	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_persistence_failures_total",
		Help: "Number of failed store operations",
	}, []string{"op"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentiment_active_sessions",
		Help: "Number of dashboard sessions held in memory",
	})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_api_requests_total",
		Help: "Total number of dashboard API requests",
	}, []string{"route", "status"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentiment_api_latency_seconds",
		Help:    "Latency of dashboard API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentiment_exports_total",
		Help: "Total number of history exports by format",
	}, []string{"format"})
)
