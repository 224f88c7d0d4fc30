// Package provider defines the uniform generation interface implemented by
// each upstream model service, plus a registry for resolving configured
// fallback chains.
package provider

import (
	"context"
	"sync"

	"github.com/sells-group/bizclone/internal/fault"
)

// Request is a single structured-generation request. The prompt is expected
// to instruct the model to emit a JSON object; Generate decodes it.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Result is the decoded output of a successful generation.
type Result struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Raw      string         `json:"raw,omitempty"`
	Content  map[string]any `json:"content"`
}

// Provider defines the interface for generative-content providers.
type Provider interface {
	// Name returns the provider identifier (matches names in the configured
	// fallback order).
	Name() string
	// Generate produces structured content for the request.
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Registry manages available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Chain resolves an ordered fallback chain by name. Every name must resolve
// to a registered provider; an unknown name is a configuration error.
func (r *Registry) Chain(order []string) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(order) == 0 {
		return nil, fault.New(fault.KindConfigMissing, "provider order is empty")
	}

	chain := make([]Provider, 0, len(order))
	for _, name := range order {
		p, ok := r.providers[name]
		if !ok {
			return nil, fault.Newf(fault.KindConfigMissing, "provider %q is not registered", name)
		}
		chain = append(chain, p)
	}
	return chain, nil
}
