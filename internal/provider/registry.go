package provider

import (
	"fmt"

	"github.com/set-night/agentchat/internal/domain"
)

// Registry maps provider identifiers to adapters. It is read-only after construction.
type Registry struct {
	adapters map[domain.ProviderType]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.ProviderType]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

// RegistryOptions configures the default adapter set.
type RegistryOptions struct {
	GPT35    Options
	Claude35 Options
	Gemini15 Options
}

// NewDefaultRegistry registers one adapter per known provider.
func NewDefaultRegistry(opts RegistryOptions) (*Registry, error) {
	gemini, err := NewGemini15(opts.Gemini15)
	if err != nil {
		return nil, err
	}
	return NewRegistry(NewGPT35(opts.GPT35), NewClaude35(opts.Claude35), gemini), nil
}

func (r *Registry) Get(id domain.ProviderType) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter registered for %q", domain.ErrInvalidProvider, id)
	}
	return a, nil
}
