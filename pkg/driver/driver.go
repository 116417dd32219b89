// Package driver defines the contract between the unit-of-work core and a
// database client that exposes interactive (callback-scoped) transactions.
package driver

import (
	"context"
	"errors"
	"time"
)

// Client is an interactive-transaction entry point. Transact runs fn exactly
// once inside a single database transaction, handing it a transaction-scoped
// Handle. A nil return from fn commits the transaction; a non-nil return rolls
// it back. Transact itself does not return until the transaction has been
// finalized either way.
type Client interface {
	Transact(ctx context.Context, opts TxOptions, fn func(ctx context.Context, h Handle) error) error
}

// Handle is the transaction-scoped client passed to the transaction callback.
// It is valid only until the enclosing Transact call returns; using it after
// that is a caller error.
type Handle interface {
	// Exec runs a raw statement on the transaction. The core uses this only
	// for savepoint management. Adapters without raw statement support return
	// ErrRawUnsupported.
	Exec(ctx context.Context, stmt string, args ...any) error
}

// IsolationLevel enumerates the isolation levels accepted by Transact.
type IsolationLevel string

// Isolation levels, mapped 1:1 to the underlying client's vocabulary.
const (
	ReadUncommitted IsolationLevel = "read_uncommitted"
	ReadCommitted   IsolationLevel = "read_committed"
	RepeatableRead  IsolationLevel = "repeatable_read"
	Serializable    IsolationLevel = "serializable"
	Snapshot        IsolationLevel = "snapshot"
)

// TxOptions bounds a single interactive transaction.
type TxOptions struct {
	// MaxWait bounds how long Transact may wait to begin the transaction
	// (connection acquisition included). Zero means no bound.
	MaxWait time.Duration

	// Timeout bounds the total lifetime of the open transaction. When it
	// expires the callback's context is canceled and the transaction rolls
	// back. Zero means no bound.
	Timeout time.Duration

	// Isolation selects the transaction isolation level. Empty selects the
	// adapter default.
	Isolation IsolationLevel
}

// Sentinel errors shared between adapters and the unit-of-work core.
var (
	// ErrTxTimeout indicates the transaction exceeded its lifetime bound.
	ErrTxTimeout = errors.New("driver: transaction timeout exceeded")

	// ErrTxRollback is returned from the transaction callback to request a
	// clean rollback. Adapters propagate it unchanged from Transact.
	ErrTxRollback = errors.New("driver: rollback requested")

	// ErrRawUnsupported indicates the adapter cannot execute raw statements.
	ErrRawUnsupported = errors.New("driver: raw statements not supported")
)

// IsTimeout reports whether err is timeout-shaped: the shared sentinel, a
// context deadline, or an adapter-specific timeout the adapter already
// translated to one of those.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTxTimeout) || errors.Is(err, context.DeadlineExceeded)
}
