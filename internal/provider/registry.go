package provider

import (
	"fmt"
	"sync"
)

// Registry stores configured Provider instances by name, grounded in the
// teacher's config.LLMProviderRegistry (thread-safe lookup by name,
// defensive copy on construction).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry builds a Registry from a fixed set of providers, keyed by
// their own Name().
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider. An empty name resolves to the first
// configured provider found, in map iteration order, so callers that
// don't care which provider serves them still get one.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		p, ok := r.providers[name]
		if !ok {
			return nil, fmt.Errorf("unknown AI provider: %s", name)
		}
		return p, nil
	}
	for _, p := range r.providers {
		if p.IsConfigured() {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no AI provider is configured")
}
