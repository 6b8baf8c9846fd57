package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
)

type fakeClassifier struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	handle   func(ctx context.Context, text string, attempt int) error
}

func newFake(handle func(ctx context.Context, text string, attempt int) error) *fakeClassifier {
	return &fakeClassifier{calls: make(map[string]int), handle: handle}
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (domain.SentimentResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[text]++
	attempt := f.calls[text]
	f.mu.Unlock()

	if f.handle != nil {
		if err := f.handle(ctx, text, attempt); err != nil {
			return domain.SentimentResult{}, err
		}
	}

	return domain.SentimentResult{
		ID:         "id-" + text,
		Text:       text,
		Label:      domain.LabelNeutral,
		Scores:     domain.Scores{Neutral: 1},
		Confidence: 1,
		Keywords:   []domain.Keyword{},
	}, nil
}

func (f *fakeClassifier) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[text]
}

func (f *fakeClassifier) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.calls {
		total += n
	}

	return total
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%02d", i)
	}

	return out
}

func resultTexts(results []domain.SentimentResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}

	return out
}

var errTransport = &apperrors.UpstreamTransportError{StatusCode: 503, Err: errors.New("unavailable")}

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{name: "empty", n: 0, size: 5, sizes: []int{}},
		{name: "exact", n: 10, size: 5, sizes: []int{5, 5}},
		{name: "remainder", n: 12, size: 5, sizes: []int{5, 5, 2}},
		{name: "smaller than size", n: 3, size: 5, sizes: []int{3}},
		{name: "size one", n: 3, size: 1, sizes: []int{1, 1, 1}},
		{name: "non-positive size uses default", n: 7, size: 0, sizes: []int{5, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := texts(tt.n)
			chunks := Chunk(in, tt.size)

			sizes := make([]int, len(chunks))
			var joined []string

			for i, c := range chunks {
				sizes[i] = len(c)
				joined = append(joined, c...)
			}

			assert.Equal(t, tt.sizes, sizes)
			assert.Equal(t, len(in), len(joined))

			if len(in) > 0 {
				assert.Equal(t, in, joined)
			}
		})
	}
}

func TestRun_EmptyInput(t *testing.T) {
	o := New(config.BatchConfig{}, newFake(nil), nil)

	_, err := o.Run(context.Background(), nil, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRun_PreservesInputOrder(t *testing.T) {
	in := texts(12)
	delays := map[string]time.Duration{}

	for i, text := range in {
		// later texts in a chunk finish first
		delays[text] = time.Duration(5-i%5) * 3 * time.Millisecond
	}

	fake := newFake(func(_ context.Context, text string, _ int) error {
		time.Sleep(delays[text])
		return nil
	})

	rep, err := New(config.BatchConfig{ChunkSize: 5}, fake, nil).Run(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, in, resultTexts(rep.Results))
	assert.Empty(t, rep.Failures)
}

func TestRun_ChunkIsBarrier(t *testing.T) {
	fake := newFake(func(context.Context, string, int) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	})

	_, err := New(config.BatchConfig{ChunkSize: 3}, fake, nil).Run(context.Background(), texts(10), nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, fake.maxSeen.Load(), int32(3))
	assert.Equal(t, 10, fake.totalCalls())
}

func TestRun_Progress(t *testing.T) {
	var seen []domain.Progress

	_, err := New(config.BatchConfig{ChunkSize: 5}, newFake(nil), nil).Run(context.Background(), texts(12), func(p domain.Progress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, []int{5, 10, 12}, []int{seen[0].Completed, seen[1].Completed, seen[2].Completed})

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Percent, seen[i-1].Percent)
	}

	assert.Less(t, seen[1].Percent, 100.0)
	assert.Equal(t, 100.0, seen[2].Percent)
	assert.Equal(t, 12, seen[2].Total)
}

func TestRun_AllOrNothingFailsWholeRun(t *testing.T) {
	in := []string{"first", "second", "third"}
	fake := newFake(func(_ context.Context, text string, _ int) error {
		if text == "second" {
			return errTransport
		}

		return nil
	})

	var progress []domain.Progress

	rep, err := New(config.BatchConfig{ChunkSize: 1}, fake, nil).Run(context.Background(), in, func(p domain.Progress) {
		progress = append(progress, p)
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
	assert.Empty(t, rep.Results)
	assert.Len(t, progress, 1)
	assert.Zero(t, fake.callCount("third"), "no chunk starts after a failed one")
}

func TestRun_AllOrNothingCancelsSiblings(t *testing.T) {
	var siblingCancelled atomic.Bool

	fake := newFake(func(ctx context.Context, text string, _ int) error {
		if text == "bad" {
			return &apperrors.UpstreamFormatError{Reason: "garbage"}
		}

		select {
		case <-ctx.Done():
			siblingCancelled.Store(true)
			return &apperrors.UpstreamTransportError{Err: ctx.Err()}
		case <-time.After(2 * time.Second):
			return nil
		}
	})

	start := time.Now()
	_, err := New(config.BatchConfig{ChunkSize: 5}, fake, nil).Run(context.Background(), []string{"slow", "bad", "slower"}, nil)

	require.ErrorIs(t, err, apperrors.ErrUpstreamFormat)
	assert.True(t, siblingCancelled.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_CancellationBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlightCtxErr atomic.Value

	fake := newFake(func(callCtx context.Context, text string, _ int) error {
		if text == "t00" {
			cancel()
			time.Sleep(5 * time.Millisecond)

			if err := callCtx.Err(); err != nil {
				inFlightCtxErr.Store(err)
			}
		}

		return nil
	})

	rep, err := New(config.BatchConfig{ChunkSize: 2}, fake, nil).Run(ctx, texts(6), nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Results)
	assert.Nil(t, inFlightCtxErr.Load(), "in-flight chunk runs to its barrier")
	assert.Equal(t, 1, fake.callCount("t01"))
	assert.Zero(t, fake.callCount("t02"))
}

func TestRun_PartialPolicy(t *testing.T) {
	in := texts(7)
	fake := newFake(func(_ context.Context, text string, _ int) error {
		if text == "t01" || text == "t05" {
			return errTransport
		}

		return nil
	})

	o := New(config.BatchConfig{ChunkSize: 3, FailurePolicy: config.FailurePolicyPartial}, fake, nil)

	rep, err := o.Run(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"t00", "t02", "t03", "t04", "t06"}, resultTexts(rep.Results))
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, 1, rep.Failures[0].Index)
	assert.Equal(t, "t01", rep.Failures[0].Text)
	assert.Equal(t, 5, rep.Failures[1].Index)
	assert.ErrorIs(t, rep.Failures[1].Err, apperrors.ErrUpstreamTransport)
}

func TestRun_PartialPolicyAllFailed(t *testing.T) {
	fake := newFake(func(context.Context, string, int) error { return errTransport })
	o := New(config.BatchConfig{FailurePolicy: config.FailurePolicyPartial}, fake, nil)

	rep, err := o.Run(context.Background(), texts(3), nil)
	require.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
	assert.Empty(t, rep.Results)
	assert.Len(t, rep.Failures, 3)
}

func TestRun_RetriesTransportErrors(t *testing.T) {
	fake := newFake(func(_ context.Context, _ string, attempt int) error {
		if attempt == 1 {
			return errTransport
		}

		return nil
	})

	o := New(config.BatchConfig{MaxRetries: 2, RetryBaseDelay: time.Millisecond}, fake, nil)

	rep, err := o.Run(context.Background(), []string{"a", "b"}, nil)
	require.NoError(t, err)

	assert.Len(t, rep.Results, 2)
	assert.Equal(t, 2, fake.callCount("a"))
	assert.Equal(t, 2, fake.callCount("b"))
}

func TestRun_DoesNotRetryFormatErrors(t *testing.T) {
	fake := newFake(func(context.Context, string, int) error {
		return &apperrors.UpstreamFormatError{Reason: "bad json"}
	})

	o := New(config.BatchConfig{MaxRetries: 3, RetryBaseDelay: time.Millisecond}, fake, nil)

	_, err := o.Run(context.Background(), []string{"a"}, nil)
	require.ErrorIs(t, err, apperrors.ErrUpstreamFormat)
	assert.Equal(t, 1, fake.callCount("a"))
}

func TestRun_RetriesExhausted(t *testing.T) {
	fake := newFake(func(context.Context, string, int) error { return errTransport })

	o := New(config.BatchConfig{MaxRetries: 2, RetryBaseDelay: time.Millisecond}, fake, nil)

	_, err := o.Run(context.Background(), []string{"a"}, nil)
	require.ErrorIs(t, err, apperrors.ErrUpstreamTransport)
	assert.Equal(t, 3, fake.callCount("a"))
}
