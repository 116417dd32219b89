package uow

import (
	"sync"

	"github.com/struktos/unitofwork/pkg/driver"
)

// RepositoryFactory builds a data-access object bound to a transaction-scoped
// handle. The returned instance is cached for the lifetime of one transaction
// and must not be retained past it.
type RepositoryFactory func(h driver.Handle) any

// Registry maps repository tokens to factories. It is safe for concurrent use;
// a factory and the unit-of-work instances built from it may register from
// different goroutines.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]RepositoryFactory
}

// NewRegistry creates an empty repository registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]RepositoryFactory)}
}

// Register stores factory under token, silently overwriting any prior
// registration for the same token (last registration wins). It panics on a
// zero token or nil factory: both are programming errors, not runtime states.
// Returns the registry for fluent chaining.
func (r *Registry) Register(token Token, factory RepositoryFactory) *Registry {
	if token.IsZero() {
		panic("uow: Register called with zero token")
	}
	if factory == nil {
		panic("uow: Register called with nil factory")
	}
	r.mu.Lock()
	r.factories[token.Key()] = factory
	r.mu.Unlock()
	return r
}

// Has reports whether a factory is registered for token.
func (r *Registry) Has(token Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[token.Key()]
	return ok
}

// Unregister removes the factory for token, reporting whether one existed.
func (r *Registry) Unregister(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[token.Key()]
	delete(r.factories, token.Key())
	return ok
}

// Keys returns the normalized keys of every registered factory. Order is not
// specified.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

func (r *Registry) lookup(key string) (RepositoryFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	return f, ok
}

// clone copies the current registrations into a new registry. Later changes to
// either side are invisible to the other.
func (r *Registry) clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factories := make(map[string]RepositoryFactory, len(r.factories))
	for k, f := range r.factories {
		factories[k] = f
	}
	return &Registry{factories: factories}
}
