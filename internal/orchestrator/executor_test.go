package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/provider"
	"github.com/sells-group/bizclone/internal/resilience"
)

// scriptedProvider fails a set number of times with a fixed class before
// succeeding, and counts every call.
type scriptedProvider struct {
	name     string
	failures int
	class    provider.Class
	calls    int
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Generate(_ context.Context, _ provider.Request) (*provider.Result, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, provider.NewError(s.name, s.class, errors.New("scripted failure"))
	}
	return &provider.Result{
		Provider: s.name,
		Content:  map[string]any{"overview": "a business"},
	}, nil
}

func fastRetry(maxAttempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newExecutor(t *testing.T, retry resilience.RetryConfig, providers ...provider.Provider) *Executor {
	t.Helper()
	reg := provider.NewRegistry()
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		reg.Register(p)
		order = append(order, p.Name())
	}
	return NewExecutor(reg, order, retry, resilience.NewCheckpointStore(16), 0)
}

func TestExecutor_RetriesToSuccess(t *testing.T) {
	p := &scriptedProvider{name: "anthropic", failures: 2, class: provider.ClassNetwork}
	e := newExecutor(t, fastRetry(3), p)

	res, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, 3, p.calls)
}

func TestExecutor_AuthSkipsToNextProviderWithoutRetry(t *testing.T) {
	a := &scriptedProvider{name: "grok", failures: 99, class: provider.ClassAuth}
	b := &scriptedProvider{name: "anthropic"}
	e := newExecutor(t, fastRetry(3), a, b)

	res, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, 1, a.calls, "auth failures must not be retried against the same provider")
	assert.Equal(t, 1, b.calls)
}

func TestExecutor_ExhaustionAdvancesChain(t *testing.T) {
	a := &scriptedProvider{name: "grok", failures: 99, class: provider.ClassRateLimited}
	b := &scriptedProvider{name: "gemini"}
	e := newExecutor(t, fastRetry(2), a, b)

	res, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, 2, a.calls, "retryable failures exhaust the per-provider budget first")
}

func TestExecutor_AggregatesWhenAllFail(t *testing.T) {
	a := &scriptedProvider{name: "grok", failures: 99, class: provider.ClassNetwork}
	b := &scriptedProvider{name: "anthropic", failures: 99, class: provider.ClassAuth}
	e := newExecutor(t, fastRetry(2), a, b)

	_, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.Error(t, err)

	f := fault.As(err)
	assert.Equal(t, fault.KindProviderDown, f.Kind)
	assert.Contains(t, f.Message, "grok")
	assert.Contains(t, f.Message, "anthropic")
	assert.Equal(t, "NETWORK", f.Diagnostics["grok"])
	assert.Equal(t, "AUTH", f.Diagnostics["anthropic"])
}

func TestExecutor_AllTimeoutsAggregateAsTimeout(t *testing.T) {
	a := &scriptedProvider{name: "grok", failures: 99, class: provider.ClassTimeout}
	b := &scriptedProvider{name: "gemini", failures: 99, class: provider.ClassTimeout}
	e := newExecutor(t, fastRetry(2), a, b)

	_, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, fault.KindProviderTimeout, fault.KindOf(err))
}

func TestExecutor_UnknownProviderShortCircuits(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(&scriptedProvider{name: "anthropic"})
	e := NewExecutor(reg, []string{"anthropic", "ghost"}, fastRetry(2), nil, 0)

	_, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, fault.KindConfigMissing, fault.KindOf(err))
}

// hangingProvider blocks until the call context is canceled, modeling an
// upstream whose transport never returns on its own.
type hangingProvider struct {
	name  string
	calls int
}

func (h *hangingProvider) Name() string { return h.name }

func (h *hangingProvider) Generate(ctx context.Context, _ provider.Request) (*provider.Result, error) {
	h.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecutor_CallTimeoutBoundsHangingProvider(t *testing.T) {
	hung := &hangingProvider{name: "gemini"}
	good := &scriptedProvider{name: "anthropic"}
	reg := provider.NewRegistry()
	reg.Register(hung)
	reg.Register(good)
	e := NewExecutor(reg, []string{"gemini", "anthropic"}, fastRetry(2),
		resilience.NewCheckpointStore(16), 15*time.Millisecond)

	res, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, 2, hung.calls, "each bounded call must expire and consume retry budget")
	assert.Equal(t, 1, good.calls)
}

func TestExecutor_CallTimeoutClassifiesAsTimeout(t *testing.T) {
	hung := &hangingProvider{name: "gemini"}
	reg := provider.NewRegistry()
	reg.Register(hung)
	e := NewExecutor(reg, []string{"gemini"}, fastRetry(1),
		resilience.NewCheckpointStore(16), 10*time.Millisecond)

	_, err := e.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.Error(t, err)
	f := fault.As(err)
	assert.Equal(t, fault.KindProviderTimeout, f.Kind)
	assert.True(t, f.Retryable)
	assert.Equal(t, "TIMEOUT", f.Diagnostics["gemini"])
}

func TestExecutor_CheckpointClearedAfterSuccess(t *testing.T) {
	cs := resilience.NewCheckpointStore(16)

	bad := &scriptedProvider{name: "grok", failures: 99, class: provider.ClassNetwork}
	regBad := provider.NewRegistry()
	regBad.Register(bad)
	eBad := NewExecutor(regBad, []string{"grok"}, fastRetry(2), cs, 0)

	_, err := eBad.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.Error(t, err)
	_, ok := cs.Load("req-1")
	require.True(t, ok, "failed attempts must leave a checkpoint behind")

	flaky := &scriptedProvider{name: "anthropic", failures: 1, class: provider.ClassNetwork}
	regOK := provider.NewRegistry()
	regOK.Register(flaky)
	eOK := NewExecutor(regOK, []string{"anthropic"}, fastRetry(3), cs, 0)

	_, err = eOK.Generate(context.Background(), "req-1", provider.Request{Prompt: "x"})
	require.NoError(t, err)
	_, ok = cs.Load("req-1")
	assert.False(t, ok, "success must clear the stale checkpoint")
	assert.Equal(t, 0, cs.Len())
}

func TestExecutor_ContextCancellation(t *testing.T) {
	a := &scriptedProvider{name: "grok", failures: 99, class: provider.ClassNetwork}
	e := newExecutor(t, resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
	}, a)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Generate(ctx, "req-1", provider.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, fault.KindProviderTimeout, fault.KindOf(err))
	assert.Less(t, a.calls, 3, "cancellation must stop the retry loop")
}
