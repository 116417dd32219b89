package store

import (
	"context"
	"testing"

	"github.com/struktos/unitofwork/pkg/driver"
)

type fakeTransactor struct{}

func (f *fakeTransactor) HealthCheck(context.Context) error { return nil }
func (f *fakeTransactor) Close() error                      { return nil }
func (f *fakeTransactor) Transact(ctx context.Context, opts driver.TxOptions, fn func(context.Context, driver.Handle) error) error {
	return fn(ctx, nil)
}

func TestTransactorContract(t *testing.T) {
	var _ Adapter = (*fakeTransactor)(nil)
	var _ Transactor = (*fakeTransactor)(nil)

	a := &fakeTransactor{}
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	called := false
	err := a.Transact(context.Background(), driver.TxOptions{}, func(context.Context, driver.Handle) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("transact: err=%v called=%v", err, called)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
