package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizclone/internal/fault"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, _ Request) (*Result, error) {
	return &Result{Provider: s.name, Content: map[string]any{}}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "anthropic"})
	r.Register(&stubProvider{name: "grok"})

	assert.NotNil(t, r.Get("anthropic"))
	assert.Nil(t, r.Get("missing"))
	assert.ElementsMatch(t, []string{"anthropic", "grok"}, r.List())
}

func TestRegistry_Chain(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "anthropic"})
	r.Register(&stubProvider{name: "gemini"})
	r.Register(&stubProvider{name: "grok"})

	chain, err := r.Chain([]string{"grok", "anthropic"})
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "grok", chain[0].Name())
	assert.Equal(t, "anthropic", chain[1].Name())
}

func TestRegistry_ChainUnknownProvider(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "anthropic"})

	_, err := r.Chain([]string{"anthropic", "nonexistent"})
	require.Error(t, err)
	assert.Equal(t, fault.KindConfigMissing, fault.KindOf(err))
}

func TestRegistry_ChainEmptyOrder(t *testing.T) {
	r := NewRegistry()

	_, err := r.Chain(nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindConfigMissing, fault.KindOf(err))
}
