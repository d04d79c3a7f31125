package capability

import (
	"fmt"
	"sort"
)

// Registry holds the providers available on this machine, keyed by
// kind. It is populated once at startup and read-only afterwards.
type Registry struct {
	providers map[Kind]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Kind]Provider)}
}

// Register adds a provider, replacing any previous provider of the
// same kind. Replacement is what lets dry-run decorate a populated
// registry in place.
func (r *Registry) Register(p Provider) {
	r.providers[p.Kind()] = p
}

// Get returns the provider for kind.
func (r *Registry) Get(kind Kind) (Provider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no provider registered for kind %q", kind)
	}
	return p, nil
}

// Has reports whether a provider of the kind is registered.
func (r *Registry) Has(kind Kind) bool {
	_, ok := r.providers[kind]
	return ok
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Decorate replaces every registered provider with wrap(provider).
func (r *Registry) Decorate(wrap func(Provider) Provider) {
	for k, p := range r.providers {
		r.providers[k] = wrap(p)
	}
}
