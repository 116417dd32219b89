package uow

import (
	"context"

	"github.com/struktos/unitofwork/pkg/driver"
)

// Factory stamps out configured unit-of-work instances sharing a repository
// registry and default options. Each Create snapshots the registry, so
// registrations made on the factory after an instance was created never
// retroactively appear in it.
type Factory struct {
	client   driver.Client
	cfg      Config
	registry *Registry
}

// NewFactory creates a unit-of-work factory.
func NewFactory(client driver.Client, cfg Config) *Factory {
	return &Factory{
		client:   client,
		cfg:      cfg,
		registry: NewRegistry(),
	}
}

// RegisterRepository registers a shared factory inherited by every unit of
// work created afterwards. Returns the factory for fluent chaining.
func (f *Factory) RegisterRepository(token Token, factory RepositoryFactory) *Factory {
	f.registry.Register(token, factory)
	return f
}

// HasRepository reports whether a shared factory is registered for token.
func (f *Factory) HasRepository(token Token) bool {
	return f.registry.Has(token)
}

// Create builds a new unit of work with a copy of the currently registered
// repository factories.
func (f *Factory) Create() *UnitOfWork {
	return newUnitOfWork(f.client, f.cfg, f.registry.clone())
}

// CreateWithContext builds a new unit of work and attaches ctx as its
// correlation context.
func (f *Factory) CreateWithContext(ctx context.Context) *UnitOfWork {
	u := f.Create()
	// Attach cannot fail on a fresh instance.
	_ = u.SetContext(ctx)
	return u
}
