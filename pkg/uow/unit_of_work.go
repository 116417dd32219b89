// Package uow coordinates one atomic database transaction across multiple
// data-access operations, exposing an imperative Start/Commit/Rollback surface
// over clients whose transactions are callback-scoped.
package uow

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/struktos/unitofwork/pkg/driver"
	"github.com/struktos/unitofwork/pkg/observability/logger"
	"github.com/struktos/unitofwork/pkg/observability/metrics"
)

// Savepoint names are interpolated into native statements, so they are
// restricted to a plain identifier set up front.
var savepointNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// UnitOfWork coordinates a single transaction cycle against an interactive
// transaction client. One instance serves one logical flow at a time and runs
// at most one Start/Commit-or-Rollback cycle; build instances through a
// Factory (or NewUnitOfWork) per request.
type UnitOfWork struct {
	id      string
	client  driver.Client
	cfg     Config
	log     logger.Logger
	metrics *metrics.TransactionMetrics

	mu           sync.Mutex
	state        State
	disposed     bool
	traceID      string
	handle       driver.Handle
	registry     *Registry
	cache        map[string]any
	savepoints   map[string]SavepointInfo
	savepointSeq uint64
	bridge       *bridge
	txOpts       driver.TxOptions
	startedAt    time.Time
}

// NewUnitOfWork creates a unit of work with its own empty repository registry.
func NewUnitOfWork(client driver.Client, cfg Config) *UnitOfWork {
	return newUnitOfWork(client, cfg, NewRegistry())
}

func newUnitOfWork(client driver.Client, cfg Config, registry *Registry) *UnitOfWork {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &UnitOfWork{
		id:       id,
		client:   client,
		cfg:      cfg,
		log:      cfg.Logger.With("unit_of_work_id", id),
		metrics:  cfg.Metrics,
		state:    StateInactive,
		registry: registry,
	}
}

// ID returns the process-unique identifier used for correlation.
func (u *UnitOfWork) ID() string { return u.id }

// State returns the current lifecycle state.
func (u *UnitOfWork) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// TraceID returns the correlation trace id, when one was attached.
func (u *UnitOfWork) TraceID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.traceID
}

// SetContext attaches a correlation context. The trace id found in ctx (if
// any) is carried in subsequent logs, errors, and results. The context is
// advisory metadata only: its cancellation is not wired to the transaction.
func (u *UnitOfWork) SetContext(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return &DisposedError{Op: "set_context", UnitOfWorkID: u.id}
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		u.traceID = traceID
		u.log = u.log.With("trace_id", traceID)
	}
	return nil
}

// Start opens the underlying interactive transaction and returns once the
// transaction-scoped handle is live. The transaction then stays open, the
// client's callback suspended, until Commit or Rollback decides its outcome.
// opts may be nil to use the configured defaults.
func (u *UnitOfWork) Start(ctx context.Context, opts *driver.TxOptions) error {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return &DisposedError{Op: "start", UnitOfWorkID: u.id}
	}
	if u.state != StateInactive {
		err := &TransactionAlreadyActiveError{State: u.state, UnitOfWorkID: u.id, TraceID: u.traceID}
		u.mu.Unlock()
		return err
	}
	if u.traceID == "" {
		if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
			u.traceID = traceID
			u.log = u.log.With("trace_id", traceID)
		}
	}
	txOpts := u.resolveOptions(opts)
	u.txOpts = txOpts
	b := newBridge()
	u.bridge = b
	u.mu.Unlock()

	// The transaction outlives this call, so it must not die with the
	// caller's request context. Values (trace correlation) are kept;
	// cancellation is advisory only and the lifetime bound comes from
	// txOpts.Timeout.
	txCtx := context.WithoutCancel(ctx)
	b.run(txCtx, u.client, txOpts, u.finalize)

	select {
	case h := <-b.ready:
		u.mu.Lock()
		u.handle = h
		u.state = StateActive
		u.startedAt = time.Now()
		u.cache = make(map[string]any)
		u.savepoints = make(map[string]SavepointInfo)
		u.savepointSeq = 0
		u.mu.Unlock()
		u.metrics.TransactionStarted()
		u.log.Debug("transaction started",
			"isolation", string(txOpts.Isolation),
			"timeout", txOpts.Timeout,
			"max_wait", txOpts.MaxWait,
		)
		return nil
	case <-b.settled:
		// The client failed before handing over a handle.
		return b.wait(context.Background())
	}
}

// resolveOptions merges the per-call options over the configured defaults.
// A nil opts uses the defaults unchanged; otherwise each zero field falls back
// to its Config counterpart.
func (u *UnitOfWork) resolveOptions(opts *driver.TxOptions) driver.TxOptions {
	resolved := driver.TxOptions{
		Timeout:   u.cfg.DefaultTimeout,
		MaxWait:   u.cfg.DefaultMaxWait,
		Isolation: u.cfg.DefaultIsolation,
	}
	if opts == nil {
		return resolved
	}
	if opts.Timeout > 0 {
		resolved.Timeout = opts.Timeout
	}
	if opts.MaxWait > 0 {
		resolved.MaxWait = opts.MaxWait
	}
	if opts.Isolation != "" {
		resolved.Isolation = opts.Isolation
	}
	return resolved
}

// Commit requests the suspended transaction callback to resolve, committing
// the transaction, and waits for the finalization to settle. The returned
// result reflects the real outcome; a commit that fails underneath surfaces
// as a typed error, never as a silent success.
func (u *UnitOfWork) Commit(ctx context.Context) (*TxResult, error) {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return nil, &DisposedError{Op: "commit", UnitOfWorkID: u.id}
	}
	if u.state != StateActive || u.handle == nil {
		err := &NoActiveTransactionError{Op: "commit", State: u.state, UnitOfWorkID: u.id, TraceID: u.traceID}
		u.mu.Unlock()
		return nil, err
	}
	u.state = StateCommitting
	b := u.bridge
	started := u.startedAt
	traceID := u.traceID
	u.mu.Unlock()

	u.log.Debug("commit requested")
	b.signal(nil)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return &TxResult{Success: true, Duration: time.Since(started), TraceID: traceID}, nil
}

// Rollback requests the suspended transaction callback to reject, rolling the
// transaction back, and waits for the finalization to settle. Calling it when
// no transaction ever started or after a terminal state is a tolerated no-op
// returning a zero-duration success.
func (u *UnitOfWork) Rollback(ctx context.Context) (*TxResult, error) {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return nil, &DisposedError{Op: "rollback", UnitOfWorkID: u.id}
	}
	switch u.state {
	case StateInactive, StateCommitted, StateRolledBack, StateFailed:
		res := &TxResult{Success: true, Duration: 0, TraceID: u.traceID}
		u.mu.Unlock()
		return res, nil
	case StateCommitting, StateRollingBack:
		err := &NoActiveTransactionError{Op: "rollback", State: u.state, UnitOfWorkID: u.id, TraceID: u.traceID}
		u.mu.Unlock()
		return nil, err
	}
	u.state = StateRollingBack
	b := u.bridge
	started := u.startedAt
	traceID := u.traceID
	u.mu.Unlock()

	u.log.Debug("rollback requested")
	b.signal(driver.ErrTxRollback)
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return &TxResult{Success: true, Duration: time.Since(started), TraceID: traceID}, nil
}

// finalize is the background continuation of the interactive transaction: it
// classifies the outcome of the whole Transact call, lands the terminal state,
// clears transaction-scoped caches, and records logs and metrics. It runs
// exactly once per Start, on the bridge goroutine.
func (u *UnitOfWork) finalize(err error) error {
	u.mu.Lock()
	prev := u.state
	var duration time.Duration
	if !u.startedAt.IsZero() {
		duration = time.Since(u.startedAt)
	}

	var terminal State
	var outcome error
	switch {
	case err == nil:
		terminal = StateCommitted
	case errors.Is(err, driver.ErrTxRollback):
		terminal = StateRolledBack
	case driver.IsTimeout(err) && prev != StateRollingBack:
		terminal = StateFailed
		outcome = &TransactionTimeoutError{
			Timeout:      u.txOpts.Timeout,
			UnitOfWorkID: u.id,
			TraceID:      u.traceID,
			cause:        err,
		}
	case prev == StateInactive:
		// Transact failed before the callback ever ran.
		terminal = StateFailed
		outcome = &ConnectionError{UnitOfWorkID: u.id, TraceID: u.traceID, cause: err}
	default:
		terminal = StateFailed
		code, op := CodeTransactionFailed, "run"
		switch prev {
		case StateCommitting:
			code, op = CodeCommitFailed, "commit"
		case StateRollingBack:
			code, op = CodeRollbackFailed, "rollback"
		}
		outcome = &TransactionError{Code: code, Op: op, UnitOfWorkID: u.id, TraceID: u.traceID, cause: err}
	}

	u.state = terminal
	u.handle = nil
	u.cache = nil
	u.savepoints = nil
	u.mu.Unlock()

	switch terminal {
	case StateCommitted:
		u.metrics.TransactionCommitted(duration)
		u.log.Info("transaction committed", "duration", duration)
	case StateRolledBack:
		u.metrics.TransactionRolledBack(duration)
		u.log.Info("transaction rolled back", "duration", duration)
	case StateFailed:
		if prev != StateInactive {
			u.metrics.TransactionFailed(duration)
		}
		u.log.Error("transaction failed", "duration", duration, "error", err, "previous_state", prev.String())
	}
	return outcome
}

// GetRepository returns the repository registered under token, built against
// the live transaction handle. Instances are per-transaction singletons: the
// first call builds and caches, later calls return the identical instance
// until the transaction ends.
func (u *UnitOfWork) GetRepository(token Token) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return nil, &DisposedError{Op: "get_repository", UnitOfWorkID: u.id}
	}
	if u.state != StateActive || u.handle == nil {
		return nil, &NoActiveTransactionError{Op: "get_repository", State: u.state, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	key := token.Key()
	if inst, ok := u.cache[key]; ok {
		return inst, nil
	}
	factory, ok := u.registry.lookup(key)
	if !ok {
		return nil, &RepositoryNotRegisteredError{Token: token.String(), UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	inst := factory(u.handle)
	u.cache[key] = inst
	return inst, nil
}

// RegisterRepository registers a factory on this instance. Registrations made
// while a transaction is active take effect on the next GetRepository call for
// that token; registrations on a disposed instance are ignored. Returns the
// unit of work for fluent chaining.
func (u *UnitOfWork) RegisterRepository(token Token, factory RepositoryFactory) *UnitOfWork {
	u.mu.Lock()
	disposed := u.disposed
	u.mu.Unlock()
	if disposed {
		u.log.Warn("repository registration ignored on disposed unit of work", "token", token.String())
		return u
	}
	u.registry.Register(token, factory)
	return u
}

// HasRepository reports whether a factory is registered for token.
func (u *UnitOfWork) HasRepository(token Token) bool {
	return u.registry.Has(token)
}

// UnregisterRepository removes the factory for token, reporting whether one
// existed. A cached instance built before removal stays usable for the rest
// of the current transaction.
func (u *UnitOfWork) UnregisterRepository(token Token) bool {
	return u.registry.Unregister(token)
}

// RegisteredRepositories returns the normalized keys of every registered
// factory.
func (u *UnitOfWork) RegisteredRepositories() []string {
	return u.registry.Keys()
}

// ExecuteInTransaction runs fn inside one full transaction cycle: Start, fn,
// then Commit on success or Rollback on failure. The original error from fn
// (or from the commit) propagates; a rollback failure is logged, never
// substituted for it.
func (u *UnitOfWork) ExecuteInTransaction(ctx context.Context, fn func(u *UnitOfWork) error, opts *driver.TxOptions) error {
	if err := u.Start(ctx, opts); err != nil {
		return err
	}
	if err := fn(u); err != nil {
		if _, rbErr := u.Rollback(ctx); rbErr != nil {
			u.log.Error("rollback after callback error failed", "error", rbErr, "callback_error", err)
		}
		return err
	}
	if _, err := u.Commit(ctx); err != nil {
		if _, rbErr := u.Rollback(ctx); rbErr != nil {
			u.log.Error("rollback after commit error failed", "error", rbErr, "commit_error", err)
		}
		return err
	}
	return nil
}

// Transact runs fn inside one full transaction cycle on u and returns its
// result. Semantics match ExecuteInTransaction.
func Transact[T any](ctx context.Context, u *UnitOfWork, fn func(u *UnitOfWork) (T, error), opts *driver.TxOptions) (T, error) {
	var result T
	err := u.ExecuteInTransaction(ctx, func(u *UnitOfWork) error {
		var fnErr error
		result, fnErr = fn(u)
		return fnErr
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// CreateSavepoint issues a native SAVEPOINT inside the active transaction.
// The name must be a plain identifier and unique within the transaction.
func (u *UnitOfWork) CreateSavepoint(ctx context.Context, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.savepointGuard("create_savepoint", name); err != nil {
		return err
	}
	if _, exists := u.savepoints[name]; exists {
		return &SavepointError{Code: CodeSavepointExists, Name: name, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	if err := u.handle.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return &SavepointError{Code: CodeSavepointFailed, Name: name, UnitOfWorkID: u.id, TraceID: u.traceID, cause: err}
	}
	u.savepointSeq++
	u.savepoints[name] = SavepointInfo{Name: name, CreatedAt: time.Now(), seq: u.savepointSeq}
	u.metrics.SavepointOperation("create")
	u.log.Debug("savepoint created", "savepoint", name)
	return nil
}

// RollbackToSavepoint reverts the transaction to the named savepoint. Every
// savepoint created after it becomes invalid and is evicted, and the
// repository cache is cleared: repositories are stateless handle wrappers, but
// clearing keeps any instance-level assumptions from surviving the partial
// rollback.
func (u *UnitOfWork) RollbackToSavepoint(ctx context.Context, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.savepointGuard("rollback_to_savepoint", name); err != nil {
		return err
	}
	target, ok := u.savepoints[name]
	if !ok {
		return &SavepointNotFoundError{Name: name, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	if err := u.handle.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return &SavepointError{Code: CodeSavepointFailed, Name: name, UnitOfWorkID: u.id, TraceID: u.traceID, cause: err}
	}
	for spName, sp := range u.savepoints {
		if sp.seq > target.seq {
			delete(u.savepoints, spName)
		}
	}
	u.cache = make(map[string]any)
	u.metrics.SavepointOperation("rollback")
	u.log.Debug("rolled back to savepoint", "savepoint", name)
	return nil
}

// ReleaseSavepoint releases the named savepoint without affecting others.
func (u *UnitOfWork) ReleaseSavepoint(ctx context.Context, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.savepointGuard("release_savepoint", name); err != nil {
		return err
	}
	if _, ok := u.savepoints[name]; !ok {
		return &SavepointNotFoundError{Name: name, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	if err := u.handle.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return &SavepointError{Code: CodeSavepointFailed, Name: name, UnitOfWorkID: u.id, TraceID: u.traceID, cause: err}
	}
	delete(u.savepoints, name)
	u.metrics.SavepointOperation("release")
	u.log.Debug("savepoint released", "savepoint", name)
	return nil
}

// savepointGuard validates the common savepoint preconditions. Callers hold u.mu.
func (u *UnitOfWork) savepointGuard(op, name string) error {
	if u.disposed {
		return &DisposedError{Op: op, UnitOfWorkID: u.id}
	}
	if u.state != StateActive || u.handle == nil {
		return &NoActiveTransactionError{Op: op, State: u.state, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	if !u.cfg.EnableSavepoints {
		return &SavepointError{Code: CodeSavepointsDisabled, Name: name, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	if !savepointNameRe.MatchString(name) {
		return &SavepointError{Code: CodeInvalidSavepointName, Name: name, UnitOfWorkID: u.id, TraceID: u.traceID}
	}
	return nil
}

// Savepoints returns the live savepoints in creation order.
func (u *UnitOfWork) Savepoints() []SavepointInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	infos := make([]SavepointInfo, 0, len(u.savepoints))
	for _, sp := range u.savepoints {
		infos = append(infos, sp)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].seq < infos[j].seq })
	return infos
}

// Close disposes the unit of work. A still-open transaction is rolled back
// best-effort; afterwards every operation fails with DisposedError. Close is
// idempotent and never returns an error under normal use.
func (u *UnitOfWork) Close() error {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return nil
	}
	state := u.state
	u.mu.Unlock()

	if state == StateActive {
		if _, err := u.Rollback(context.Background()); err != nil {
			u.log.Warn("rollback during close failed", "error", err)
		}
	} else if state == StateCommitting || state == StateRollingBack {
		// A decision is already in flight; wait for it to settle so the
		// underlying transaction is not abandoned mid-finalization.
		u.mu.Lock()
		b := u.bridge
		u.mu.Unlock()
		if b != nil {
			_ = b.wait(context.Background())
		}
	}

	u.mu.Lock()
	u.disposed = true
	u.handle = nil
	u.cache = nil
	u.savepoints = nil
	u.mu.Unlock()
	u.log.Debug("unit of work disposed")
	return nil
}
