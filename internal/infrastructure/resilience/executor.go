package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor how to treat a failure:
// whether the call may be retried, and whether the failure counts
// against the operation's circuit breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor wraps outbound calls with bounded retries and a per-operation
// circuit breaker. One executor is shared across adapters; breakers are
// keyed by operation name so a failing vector store does not trip the
// embedding gateway.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	call func(context.Context) error,
	classify ErrorClassifier,
) error {
	if call == nil {
		return fmt.Errorf("resilience: nil call for operation %q", operation)
	}
	name := strings.TrimSpace(operation)
	if name == "" {
		name = "unnamed"
	}
	if classify == nil {
		classify = recordOnlyClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.runWithRetry(ctx, name, call, classify)
	}

	_, err := e.breakerFor(name, classify).Execute(func() (any, error) {
		return nil, e.runWithRetry(ctx, name, call, classify)
	})
	return err
}

func (e *Executor) runWithRetry(
	ctx context.Context,
	operation string,
	call func(context.Context) error,
	classify ErrorClassifier,
) error {
	wait := e.cfg.RetryInitialBackoff

	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if !classify(lastErr).Retryable || attempt == e.cfg.RetryMaxAttempts {
			return lastErr
		}

		slog.Warn("retrying_operation",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff", wait,
			"error", lastErr,
		)
		if !sleepCtx(ctx, wait) {
			return lastErr
		}

		wait = time.Duration(float64(wait) * e.cfg.RetryMultiplier)
		if wait > e.cfg.RetryMaxBackoff {
			wait = e.cfg.RetryMaxBackoff
		}
	}
	return lastErr
}

// sleepCtx waits for d and reports whether the wait completed before the
// context was cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breakerFor(operation string, classify ErrorClassifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("breaker_state_changed", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func recordOnlyClassifier(error) ErrorClassification {
	return ErrorClassification{RecordFailure: true}
}
