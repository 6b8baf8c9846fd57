package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
)

// CircuitBreaker stops calling the gateway after a run of consecutive failures.
type CircuitBreaker struct {
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	now                 func() time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
}

// NewCircuitBreaker creates a circuit breaker; zero values fall back to defaults.
func NewCircuitBreaker(threshold int, resetAfter time.Duration, logger *zerolog.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultCircuitThreshold
	}

	if resetAfter <= 0 {
		resetAfter = defaultCircuitTimeout
	}

	return &CircuitBreaker{
		threshold:  threshold,
		resetAfter: resetAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// CheckCircuit returns an error if the circuit is open.
func (cb *CircuitBreaker) CheckCircuit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.now().Before(cb.openUntil) {
		return fmt.Errorf("%w until %v", apperrors.ErrCircuitBreakerOpen, cb.openUntil)
	}

	return nil
}

// RecordSuccess records a successful call and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

// RecordFailure records a failed call and opens the circuit if threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.consecutiveFailures < cb.threshold {
		return
	}

	cb.openUntil = cb.now().Add(cb.resetAfter)
	cb.consecutiveFailures = 0

	observability.LLMCircuitOpen.Inc()

	if cb.logger != nil {
		cb.logger.Warn().
			Int("threshold", cb.threshold).
			Time("open_until", cb.openUntil).
			Msg("classifier circuit breaker opened")
	}
}
