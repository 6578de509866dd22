package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tripcraft/tripgen/pkg/config"
)

// Registry holds one Client per configured provider name.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// FromConfig builds a client for every configured provider.
func FromConfig(ctx context.Context, providers []config.ProviderConfig) (*Registry, error) {
	r := NewRegistry()
	for _, p := range providers {
		c, err := newClient(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		r.Register(p.Name, c)
	}
	return r, nil
}

func newClient(ctx context.Context, p config.ProviderConfig) (Client, error) {
	switch p.Type {
	case "", "openai":
		return NewOpenAI(p.APIKey, p.URL), nil
	case "azure":
		if p.URL == "" {
			return nil, fmt.Errorf("azure provider requires url")
		}
		return NewAzure(p.APIKey, p.URL), nil
	case "anthropic":
		return NewAnthropic(p.APIKey, p.URL), nil
	case "gemini":
		return NewGemini(ctx, p.APIKey, p.URL)
	default:
		return nil, fmt.Errorf("unknown provider type %q", p.Type)
	}
}

// Register adds or replaces the client for name.
func (r *Registry) Register(name string, c Client) {
	r.mu.Lock()
	r.clients[name] = c
	r.mu.Unlock()
}

// Client returns the client registered under name.
func (r *Registry) Client(name string) (Client, error) {
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no client for provider %q", name)
	}
	return c, nil
}
