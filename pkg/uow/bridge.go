package uow

import (
	"context"
	"sync"

	"github.com/struktos/unitofwork/pkg/driver"
)

// bridge pairs the one-shot transaction callback invoked by the underlying
// client with commit/rollback signals issued from outside that callback.
//
// The client's Transact contract is callback-scoped: the callback's return
// value decides the transaction outcome, and Transact does not return until
// the transaction is finalized. To expose an imperative Start/Commit/Rollback
// surface instead, Transact runs in its own goroutine while the callback
// publishes the live handle on `ready` and then blocks on `decision`. The
// caller's Commit or Rollback delivers the decision; the goroutine's tail
// (the continuation) records the terminal outcome and closes `settled`.
type bridge struct {
	ready    chan driver.Handle
	decision chan error
	settled  chan struct{}

	signalOnce sync.Once

	mu      sync.Mutex
	outcome error
}

func newBridge() *bridge {
	return &bridge{
		ready:    make(chan driver.Handle, 1),
		decision: make(chan error, 1),
		settled:  make(chan struct{}),
	}
}

// run executes the interactive transaction and suspends its callback until a
// decision arrives. continuation is invoked exactly once with the outcome of
// the whole Transact call, after which settled observers are released.
func (b *bridge) run(ctx context.Context, client driver.Client, opts driver.TxOptions, continuation func(err error) error) {
	go func() {
		err := client.Transact(ctx, opts, func(txCtx context.Context, h driver.Handle) error {
			b.ready <- h
			select {
			case decided := <-b.decision:
				return decided
			case <-txCtx.Done():
				// Lifetime bound expired or the transaction context was
				// canceled underneath us; the client rolls back.
				return txCtx.Err()
			}
		})
		b.complete(continuation(err))
	}()
}

// signal delivers the decision: nil commits, a non-nil error rolls back.
// Only the first signal wins; the buffered channel means delivery never
// blocks, even when the callback already returned on its own.
func (b *bridge) signal(err error) {
	b.signalOnce.Do(func() {
		b.decision <- err
	})
}

func (b *bridge) complete(outcome error) {
	b.mu.Lock()
	b.outcome = outcome
	b.mu.Unlock()
	close(b.settled)
}

// wait blocks until the continuation has recorded the terminal outcome.
func (b *bridge) wait(ctx context.Context) error {
	select {
	case <-b.settled:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.outcome
	case <-ctx.Done():
		return ctx.Err()
	}
}
