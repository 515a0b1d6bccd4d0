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

// Call outcomes reported to the Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeRetry    = "retry"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
	OutcomeRejected = "rejected"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Observer receives one event per attempt and per breaker transition.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveDependencyCall(dependency, operation, outcome string)
	ObserveBreakerState(operation, state string)
}

type Option func(*Executor)

func WithObserver(observer Observer) Option {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// Executor wraps calls to external dependencies with retries and one
// circuit breaker per operation.
type Executor struct {
	cfg      Config
	observer Observer

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config, options ...Option) *Executor {
	e := &Executor{
		cfg:      cfg.normalize(),
		observer: noopObserver{},
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Execute runs fn for an operation named "<dependency>.<action>", for
// example "postgres.set_step". The dependency selects the retry policy.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = recordEveryFailure
	}
	policy := e.cfg.policyFor(Dependency(op))

	if !e.cfg.BreakerEnabled {
		return e.attempt(ctx, op, policy, fn, classifier)
	}

	_, err := e.breaker(op, classifier).Execute(func() (struct{}, error) {
		return struct{}{}, e.attempt(ctx, op, policy, fn, classifier)
	})
	if IsCircuitOpen(err) {
		e.observe(op, OutcomeRejected)
	}
	return err
}

func (e *Executor) attempt(
	ctx context.Context,
	op string,
	policy RetryPolicy,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	backoff := policy.InitialBackoff

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			e.observe(op, OutcomeCanceled)
			return err
		}

		err := fn(ctx)
		if err == nil {
			e.observe(op, OutcomeSuccess)
			return nil
		}
		if !classifier(err).Retryable || n >= policy.MaxAttempts {
			e.observe(op, finalOutcome(err))
			return err
		}

		wait := min(backoff, policy.MaxBackoff)
		e.observe(op, OutcomeRetry)
		slog.Warn("retry_attempt",
			"operation", op,
			"attempt", n,
			"max_attempts", policy.MaxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)
		if !sleep(ctx, wait) {
			e.observe(op, OutcomeCanceled)
			return err
		}
		backoff = min(time.Duration(float64(backoff)*policy.Multiplier), policy.MaxBackoff)
	}
}

func (e *Executor) breaker(op string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[op]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			e.observer.ObserveBreakerState(name, to.String())
		},
	})
	e.breakers[op] = cb
	e.observer.ObserveBreakerState(op, gobreaker.StateClosed.String())
	return cb
}

func (e *Executor) observe(op, outcome string) {
	e.observer.ObserveDependencyCall(Dependency(op), op, outcome)
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func finalOutcome(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	return OutcomeFailure
}

// sleep waits d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
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

func recordEveryFailure(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

type noopObserver struct{}

func (noopObserver) ObserveDependencyCall(string, string, string) {}
func (noopObserver) ObserveBreakerState(string, string)           {}
