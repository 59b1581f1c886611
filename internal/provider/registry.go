package provider

import (
	"sync"

	"github.com/rotisserie/eris"
)

// Registry holds the registered providers, keyed by name. Registration
// order is preserved: the dispatcher uses it as the deterministic tie-break
// when merged results score equally.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its own name. Registering a second
// provider with the same name is an error: dispatch and health records are
// keyed by name and silently replacing one would orphan the other's state.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return eris.New("provider: cannot register nil provider")
	}
	name := p.Name()
	if name == "" {
		return eris.New("provider: cannot register empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return eris.Errorf("provider: %q already registered", name)
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Searcher returns the provider under name if it supports tender search.
func (r *Registry) Searcher(name string) (TenderSearcher, bool) {
	p, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	s, ok := p.(TenderSearcher)
	return s, ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SearcherNames returns the names of tender-capable providers in
// registration order. This is the default source set for a search that
// names no sources.
func (r *Registry) SearcherNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range r.order {
		if _, ok := r.providers[name].(TenderSearcher); ok {
			out = append(out, name)
		}
	}
	return out
}

// All returns every registered provider in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// CompanyValidator returns the first registered provider that can validate
// companies, if any.
func (r *Registry) CompanyValidator() (CompanyValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if v, ok := r.providers[name].(CompanyValidator); ok {
			return v, true
		}
	}
	return nil, false
}

// TransferSearcher returns the first registered provider that serves
// federal transfer data, if any.
func (r *Registry) TransferSearcher() (TransferSearcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if t, ok := r.providers[name].(TransferSearcher); ok {
			return t, true
		}
	}
	return nil, false
}
