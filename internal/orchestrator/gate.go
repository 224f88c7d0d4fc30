// Package orchestrator coordinates provider dispatch: a dedup/concurrency
// gate in front of a retrying fallback-chain executor.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/fault"
)

// DefaultConcurrency is the global in-flight cap applied when a Gate is
// built with a non-positive limit.
const DefaultConcurrency = 5

// capRetryAfter is the wait hint attached to capacity rejections.
const capRetryAfter = 10 * time.Second

// Gate deduplicates concurrent work by request key and enforces a global
// concurrency cap. A second submission with an in-flight key joins the
// existing flight and receives the identical outcome; a distinct key at
// capacity is rejected immediately with RATE_LIMITED rather than queued.
//
// The gate is an explicit object handed to callers so a future distributed
// implementation can replace it without touching orchestration logic.
type Gate[T any] struct {
	mu       sync.Mutex
	inflight map[string]*flight[T]
	active   int
	limit    int
}

type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// NewGate creates a gate with the given global in-flight limit.
func NewGate[T any](limit int) *Gate[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Gate[T]{
		inflight: make(map[string]*flight[T]),
		limit:    limit,
	}
}

// Submit runs work under key. The returned bool reports whether the caller
// joined an already-in-flight execution instead of starting its own.
//
// Cleanup is unconditional: the key is released and the active count
// decremented whether work succeeds, fails, or panics. A panic inside work
// is converted to an INTERNAL fault so joiners never observe a zero value
// with a nil error.
func (g *Gate[T]) Submit(ctx context.Context, key string, work func(context.Context) (T, error)) (val T, joined bool, err error) {
	var zero T

	g.mu.Lock()
	if f, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		zap.L().Debug("gate: joining in-flight request", zap.String("key", key))
		select {
		case <-f.done:
			return f.val, true, f.err
		case <-ctx.Done():
			return zero, true, fault.Wrap(ctx.Err(), fault.KindProviderTimeout,
				"canceled while waiting for in-flight request")
		}
	}

	if g.active >= g.limit {
		g.mu.Unlock()
		return zero, false, fault.Newf(fault.KindRateLimited,
			"concurrency limit reached (%d in flight)", g.limit).
			WithRetryAfter(capRetryAfter).
			WithDiagnostic("limit", g.limit)
	}

	f := &flight[T]{done: make(chan struct{})}
	g.inflight[key] = f
	g.active++
	g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			f.err = fault.Newf(fault.KindInternal, "gate: work panicked: %v", r)
			zap.L().Error("gate: recovered panic in flight",
				zap.String("key", key),
				zap.Any("panic", r),
			)
			val, err = zero, f.err
		}
		g.mu.Lock()
		delete(g.inflight, key)
		g.active--
		g.mu.Unlock()
		close(f.done)
	}()

	f.val, f.err = work(ctx)
	return f.val, false, f.err
}

// Active returns the number of in-flight executions.
func (g *Gate[T]) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
