package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeUsageStore struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func (s *fakeUsageStore) IncrementLLMUsage(_ context.Context, provider, model, task string, _, _ int, _ float64) error {
	s.mu.Lock()
	s.calls = append(s.calls, provider+"|"+model+"|"+task)
	s.mu.Unlock()

	close(s.done)

	return nil
}

func TestUsageRecorder_PersistsSuccessfulCalls(t *testing.T) {
	store := &fakeUsageStore{done: make(chan struct{})}
	logger := zerolog.Nop()
	recorder := NewUsageRecorder(store, &logger)

	recorder.RecordTokenUsage("google/gemini-2.5-flash", 10, 5, false)
	recorder.RecordTokenUsage("google/gemini-2.5-flash", 10, 5, true)

	select {
	case <-store.done:
	case <-time.After(time.Second):
		t.Fatal("usage was not persisted")
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	assert.Equal(t, []string{ProviderGateway + "|google/gemini-2.5-flash|" + TaskClassify}, store.calls)
}
