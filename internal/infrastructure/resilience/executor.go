package resilience

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Outcome tells the executor what a failed call means for retries and the breaker.
type Outcome uint8

const (
	// Fatal errors are returned at once and count as breaker failures.
	Fatal Outcome = iota
	// Transient errors are retried and count as breaker failures.
	Transient
	// Benign errors are returned at once and leave the breaker alone.
	// Caller mistakes, cancellations and missing rows belong here.
	Benign
)

func (o Outcome) Retryable() bool { return o == Transient }

func (o Outcome) String() string {
	switch o {
	case Transient:
		return "transient"
	case Benign:
		return "benign"
	default:
		return "fatal"
	}
}

type Classifier func(err error) Outcome

// Executor runs storage and broker calls with bounded retries behind one
// circuit breaker per operation name. A nil *Executor runs calls once.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) Do(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return errors.New("resilience: nil operation")
	}
	if e == nil {
		return fn(ctx)
	}
	if classify == nil {
		classify = func(error) Outcome { return Fatal }
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unnamed"
	}

	attempt := func() error { return e.retry(ctx, operation, fn, classify) }
	if e.cfg.Breaker.Disabled {
		return attempt()
	}
	_, err := e.breaker(operation, classify).Execute(func() (struct{}, error) {
		return struct{}{}, attempt()
	})
	return err
}

// DoValue is Do for calls that return a value.
func DoValue[T any](ctx context.Context, e *Executor, operation string, fn func(context.Context) (T, error), classify Classifier) (T, error) {
	var out T
	err := e.Do(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	}, classify)
	return out, err
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= e.cfg.Attempts || !classify(err).Retryable() {
			return err
		}

		wait := e.cfg.delay(attempt)
		slog.Warn("retry_scheduled",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.Attempts,
			"delay_ms", wait.Milliseconds(),
			"error", err,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (e *Executor) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}
	bc := e.cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: bc.Probes,
		Timeout:     bc.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= bc.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || classify(err) == Benign
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_state_changed", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

// IsCircuitOpen reports whether err came from a breaker refusing the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
