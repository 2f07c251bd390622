package llm

import (
	"context"
	"fmt"

	"github.com/prime-radiant-inc/sprout/pkg/registry"
)

// Provider is the LLM adapter trait. Real wire adapters (Anthropic, OpenAI,
// Gemini, ...) live outside this module; this package only defines the
// contract and a deterministic mock used by tests.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// Registry indexes Provider implementations by name.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

// NewRegistry creates an empty provider Registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

// Resolve looks up a provider by name, wrapping the not-found case in a
// descriptive error.
func (r *Registry) Resolve(name string) (Provider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("llm: provider %q not registered", name)
	}
	return p, nil
}
