package store

import (
	"context"

	"github.com/struktos/unitofwork/pkg/driver"
)

// Adapter is the minimal lifecycle and health contract for storage adapters.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// Transactor is a storage adapter that can run interactive transactions.
// Every adapter returned by NewTransactor satisfies it.
type Transactor interface {
	driver.Client
	Adapter
}
