// Package batch fans a list of texts out to the classifier in fixed-size
// chunks. Every chunk is a barrier: the next one starts only after all calls
// of the current one have returned.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/core/llm"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
)

const (
	// DefaultChunkSize matches the number of concurrent calls the dashboard has always used.
	DefaultChunkSize = 5

	defaultRetryBaseDelay = 500 * time.Millisecond
	percentScale          = 100.0

	statusSuccess   = "success"
	statusFailed    = "failed"
	statusPartial   = "partial"
	statusCancelled = "cancelled"
)

// ProgressFunc observes progress after every chunk. It is called from the
// goroutine running Run and must not block for long.
type ProgressFunc func(domain.Progress)

// Failure records a text that could not be classified under the partial policy.
type Failure struct {
	Index int
	Text  string
	Err   error
}

// Report is the outcome of a run. Results keep the input order.
type Report struct {
	Results  []domain.SentimentResult
	Failures []Failure
}

// Orchestrator runs submissions against a Classifier.
type Orchestrator struct {
	classifier llm.Classifier
	chunkSize  int
	policy     string
	maxRetries int
	retryBase  time.Duration
	logger     *zerolog.Logger
}

// New creates an orchestrator. Zero config values fall back to defaults.
func New(cfg config.BatchConfig, classifier llm.Classifier, logger *zerolog.Logger) *Orchestrator {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	policy := cfg.FailurePolicy
	if policy == "" {
		policy = config.FailurePolicyAllOrNothing
	}

	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = defaultRetryBaseDelay
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Orchestrator{
		classifier: classifier,
		chunkSize:  chunkSize,
		policy:     policy,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		logger:     logger,
	}
}

// ChunkSize returns the effective chunk size.
func (o *Orchestrator) ChunkSize() int {
	return o.chunkSize
}

// Chunk splits texts into consecutive slices of at most size elements.
// Concatenating the chunks yields texts again.
func Chunk(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([][]string, 0, (len(texts)+size-1)/size)

	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		chunks = append(chunks, texts[start:end:end])
	}

	return chunks
}

// Run classifies texts and returns the results in input order.
//
// ctx is checked before each chunk; a chunk already in flight runs to its
// barrier. Under the all_or_nothing policy any failure fails the whole run
// and no results are returned.
func (o *Orchestrator) Run(ctx context.Context, texts []string, progress ProgressFunc) (Report, error) {
	if len(texts) == 0 {
		return Report{}, fmt.Errorf("%w: nothing to analyze", apperrors.ErrInvalidInput)
	}

	observability.BatchSize.Observe(float64(len(texts)))

	results := make([]domain.SentimentResult, len(texts))
	errs := make([]error, len(texts))
	total := len(texts)
	completed := 0

	for i, chunk := range Chunk(texts, o.chunkSize) {
		if err := ctx.Err(); err != nil {
			observability.BatchRuns.WithLabelValues(statusCancelled).Inc()
			o.logger.Info().Int("completed", completed).Int("total", total).Msg("batch run cancelled")

			return Report{}, err
		}

		start := time.Now()
		err := o.runChunk(context.WithoutCancel(ctx), completed, chunk, results, errs)

		observability.ChunkDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			observability.BatchRuns.WithLabelValues(statusFailed).Inc()
			o.logger.Warn().Err(err).Int("chunk", i).Msg("batch run failed")

			return Report{}, err
		}

		completed += len(chunk)

		if progress != nil {
			progress(domain.Progress{
				Completed: completed,
				Total:     total,
				Percent:   float64(completed) / float64(total) * percentScale,
			})
		}

		o.logger.Debug().Int("chunk", i).Int("completed", completed).Int("total", total).Msg("chunk done")
	}

	return o.report(texts, results, errs)
}

// runChunk classifies one chunk concurrently. offset is the input index of
// chunk[0]. Under all_or_nothing the first error cancels the siblings and
// is returned once they have all finished.
func (o *Orchestrator) runChunk(ctx context.Context, offset int, chunk []string, results []domain.SentimentResult, errs []error) error {
	if o.policy == config.FailurePolicyPartial {
		var g errgroup.Group

		for j, text := range chunk {
			idx := offset + j

			g.Go(func() error {
				results[idx], errs[idx] = o.classify(ctx, text)
				return nil
			})
		}

		return g.Wait()
	}

	g, gctx := errgroup.WithContext(ctx)

	for j, text := range chunk {
		idx := offset + j

		g.Go(func() error {
			res, err := o.classify(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", idx, err)
			}

			results[idx] = res

			return nil
		})
	}

	return g.Wait()
}

func (o *Orchestrator) report(texts []string, results []domain.SentimentResult, errs []error) (Report, error) {
	rep := Report{Results: make([]domain.SentimentResult, 0, len(texts))}

	for i, err := range errs {
		if err != nil {
			rep.Failures = append(rep.Failures, Failure{Index: i, Text: texts[i], Err: err})
			continue
		}

		rep.Results = append(rep.Results, results[i])
	}

	switch {
	case len(rep.Results) == 0:
		observability.BatchRuns.WithLabelValues(statusFailed).Inc()

		return Report{Failures: rep.Failures}, fmt.Errorf("all %d texts failed: %w", len(texts), rep.Failures[0].Err)
	case len(rep.Failures) > 0:
		observability.BatchRuns.WithLabelValues(statusPartial).Inc()
		o.logger.Warn().Int("failed", len(rep.Failures)).Int("total", len(texts)).Msg("batch run completed with failures")
	default:
		observability.BatchRuns.WithLabelValues(statusSuccess).Inc()
	}

	return rep, nil
}

// classify calls the classifier, retrying transport failures when enabled.
func (o *Orchestrator) classify(ctx context.Context, text string) (domain.SentimentResult, error) {
	if o.maxRetries == 0 {
		return o.classifier.Classify(ctx, text)
	}

	var (
		result  domain.SentimentResult
		attempt int
	)

	backoff := retry.WithMaxRetries(uint64(o.maxRetries), retry.NewExponential(o.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			observability.ClassifyRetries.Inc()
		}

		res, err := o.classifier.Classify(ctx, text)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}

			return err
		}

		result = res

		return nil
	})
	if err != nil {
		return domain.SentimentResult{}, err
	}

	return result, nil
}

func retryable(err error) bool {
	return apperrors.Is(err, apperrors.ErrUpstreamTransport) && !apperrors.Is(err, apperrors.ErrCircuitBreakerOpen)
}
