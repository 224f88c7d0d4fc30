package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizclone/internal/fault"
)

func TestGate_DeduplicatesByKey(t *testing.T) {
	g := NewGate[string](5)

	entered := make(chan struct{})
	release := make(chan struct{})
	var executions atomic.Int32

	var wg sync.WaitGroup
	results := make([]string, 2)
	shared := make([]bool, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		val, joined, err := g.Submit(context.Background(), "key-1", func(context.Context) (string, error) {
			executions.Add(1)
			close(entered)
			<-release
			return "outcome", nil
		})
		assert.NoError(t, err)
		results[0] = val
		shared[0] = joined
	}()

	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		val, joined, err := g.Submit(context.Background(), "key-1", func(context.Context) (string, error) {
			executions.Add(1)
			return "second execution", nil
		})
		assert.NoError(t, err)
		results[1] = val
		shared[1] = joined
	}()

	// Give the joiner time to park on the in-flight entry before releasing.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load(), "work must run exactly once")
	assert.Equal(t, "outcome", results[0])
	assert.Equal(t, "outcome", results[1], "joiner must receive the identical outcome")
	assert.False(t, shared[0])
	assert.True(t, shared[1])
}

func TestGate_RejectsAtCapacity(t *testing.T) {
	const limit = 3
	g := NewGate[int](limit)

	release := make(chan struct{})
	var wg sync.WaitGroup
	entered := make(chan struct{}, limit)

	for i := 0; i < limit; i++ {
		wg.Add(1)
		key := string(rune('a' + i))
		go func() {
			defer wg.Done()
			_, _, err := g.Submit(context.Background(), key, func(context.Context) (int, error) {
				entered <- struct{}{}
				<-release
				return 0, nil
			})
			assert.NoError(t, err)
		}()
	}

	for i := 0; i < limit; i++ {
		<-entered
	}
	require.Equal(t, limit, g.Active())

	// Distinct key over the cap: immediate rejection, no queueing.
	start := time.Now()
	_, _, err := g.Submit(context.Background(), "over-cap", func(context.Context) (int, error) {
		t.Fatal("work must not run when the gate is full")
		return 0, nil
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "rejection must be immediate")

	f := fault.As(err)
	assert.Equal(t, fault.KindRateLimited, f.Kind)
	assert.True(t, f.Retryable)
	assert.Greater(t, f.RetryAfter, time.Duration(0), "capacity rejection should carry a wait hint")

	close(release)
	wg.Wait()
	assert.Equal(t, 0, g.Active(), "cleanup must release all slots")
}

func TestGate_CleanupAfterFailure(t *testing.T) {
	g := NewGate[int](1)

	_, _, err := g.Submit(context.Background(), "key", func(context.Context) (int, error) {
		return 0, fault.New(fault.KindInternal, "boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, g.Active())

	// The key must be reusable after a failed flight.
	val, joined, err := g.Submit(context.Background(), "key", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, 42, val)
}

func TestGate_JoinerHonorsContext(t *testing.T) {
	g := NewGate[int](2)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		g.Submit(context.Background(), "slow", func(context.Context) (int, error) { //nolint:errcheck
			close(entered)
			<-release
			return 0, nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, joined, err := g.Submit(ctx, "slow", func(context.Context) (int, error) {
		return 0, nil
	})
	assert.True(t, joined)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, fault.KindProviderTimeout, fault.KindOf(err),
		"a joiner giving up must surface a classified timeout, not a raw context error")

	close(release)
}

func TestGate_PanicFaultsOwnerAndJoiners(t *testing.T) {
	g := NewGate[int](2)

	entered := make(chan struct{})
	boom := make(chan struct{})

	ownerErr := make(chan error, 1)
	go func() {
		_, _, err := g.Submit(context.Background(), "key", func(context.Context) (int, error) {
			close(entered)
			<-boom
			panic("exploded")
		})
		ownerErr <- err
	}()
	<-entered

	joinerErr := make(chan error, 1)
	go func() {
		_, _, err := g.Submit(context.Background(), "key", func(context.Context) (int, error) {
			return 0, nil
		})
		joinerErr <- err
	}()

	// Give the joiner time to park on the in-flight entry.
	time.Sleep(20 * time.Millisecond)
	close(boom)

	for _, ch := range []chan error{ownerErr, joinerErr} {
		err := <-ch
		require.Error(t, err)
		assert.Equal(t, fault.KindInternal, fault.KindOf(err))
		assert.Contains(t, err.Error(), "panicked")
	}

	assert.Equal(t, 0, g.Active())

	// The key must be reusable after the panicked flight.
	val, joined, err := g.Submit(context.Background(), "key", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, 7, val)
}

func TestGate_DefaultLimit(t *testing.T) {
	g := NewGate[int](0)
	assert.Equal(t, DefaultConcurrency, g.limit)
}
