// Package resilience provides bounded retry with exponential backoff for
// provider calls, plus checkpointing of partial results between attempts.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/fault"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.25.
	JitterFraction float64

	// ShouldRetry optionally overrides the default retryability check.
	// If nil, Retryable is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns a sensible retry configuration for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Outcome carries a successful value together with attempt metadata. The
// same metadata is attached to exhaustion faults for diagnostics.
type Outcome[T any] struct {
	Value    T
	Attempts int
	Elapsed  time.Duration
}

// Attempt is one call in a retry loop. It may return a partial result even
// on failure; partials are checkpointed for operator visibility and are
// never treated as a validated success.
type Attempt[T any] func(ctx context.Context) (value T, partial any, err error)

// Run executes fn with retry according to cfg. Failed attempts that produced
// a partial result save it to checkpoints under id (when both are non-nil).
// The sleep between attempts is skipped after the final attempt and aborts
// on context cancellation.
func Run[T any](ctx context.Context, cfg RetryConfig, checkpoints *CheckpointStore, id string, fn Attempt[T]) (Outcome[T], error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Retryable
	}

	start := time.Now()
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, partial, err := fn(ctx)
		if err == nil {
			return Outcome[T]{Value: val, Attempts: attempt + 1, Elapsed: time.Since(start)}, nil
		}
		lastErr = err

		if partial != nil && checkpoints != nil {
			checkpoints.Save(id, attempt+1, partial)
		}

		out := Outcome[T]{Value: zero, Attempts: attempt + 1, Elapsed: time.Since(start)}

		// Context cancellation stops retries immediately.
		if ctx.Err() != nil {
			return out, lastErr
		}

		if !shouldRetry(lastErr) {
			return out, lastErr
		}

		// No sleep after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			return out, lastErr
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		delay := computeBackoff(attempt, cfg)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, lastErr
		case <-timer.C:
		}
	}

	return Outcome[T]{Value: zero, Attempts: cfg.MaxAttempts, Elapsed: time.Since(start)}, lastErr
}

// Retryable is the default retryability check: classified faults decide for
// themselves, everything else falls back to transient-pattern matching.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if f := fault.As(err); f.Kind != fault.KindInternal {
		return f.Retryable
	}
	return IsTransient(err)
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	// Apply jitter: ±JitterFraction of delay.
	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		jitter := (rand.Float64()*2 - 1) * jitterRange
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(provider, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying provider call",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
