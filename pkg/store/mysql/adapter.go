// Package mysql provides the MySQL interactive-transaction adapter.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/struktos/unitofwork/pkg/driver"
	"github.com/struktos/unitofwork/pkg/observability/logger"
)

// MySQL error numbers that indicate a transaction ran out of time.
const (
	mysqlLockWaitTimeout = 1205
	mysqlMaxExecTimeout  = 3024
)

// MySQLAdapter provides MySQL connectivity with connection pooling and
// exposes interactive transactions through the driver.Client contract.
type MySQLAdapter struct {
	db     *sql.DB
	logger logger.Logger
	config Config
}

// Config holds MySQL connection configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// NewMySQLAdapter creates a new MySQL adapter with connection pooling
func NewMySQLAdapter(cfg Config, log logger.Logger) (*MySQLAdapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("mysql", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("MySQL connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)

	return &MySQLAdapter{
		db:     db,
		logger: log,
		config: cfg,
	}, nil
}

// newAdapterForDB wraps an existing connection. Used by tests with sqlmock.
func newAdapterForDB(db *sql.DB, cfg Config, log logger.Logger) *MySQLAdapter {
	return &MySQLAdapter{db: db, logger: log, config: cfg}
}

// DB returns the underlying *sql.DB for direct access when needed
func (a *MySQLAdapter) DB() *sql.DB {
	return a.db
}

// Ping verifies the database connection is alive
func (a *MySQLAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// HealthCheck verifies the database connection is healthy with a timeout
func (a *MySQLAdapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Error("MySQL health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close gracefully closes the database connection
func (a *MySQLAdapter) Close() error {
	a.logger.Info("closing MySQL connection")

	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close MySQL connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// Transact executes fn exactly once inside a database transaction, with the
// same contract as the PostgreSQL adapter. Snapshot isolation is not part of
// MySQL's vocabulary and is rejected up front.
func (a *MySQLAdapter) Transact(ctx context.Context, opts driver.TxOptions, fn func(ctx context.Context, h driver.Handle) error) error {
	sqlOpts, err := toSQLTxOptions(opts.Isolation)
	if err != nil {
		return err
	}

	beginCtx := ctx
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}

	tx, err := a.db.BeginTx(beginCtx, sqlOpts)
	if err != nil {
		if beginCtx.Err() != nil {
			return fmt.Errorf("timed out waiting to begin transaction: %w", driver.ErrTxTimeout)
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				a.logger.Error("failed to rollback transaction after panic",
					"panic", p,
					"rollback_error", rbErr,
				)
			}
			panic(p)
		}
	}()

	if err := fn(txCtx, &TxHandle{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			a.logger.Error("failed to rollback transaction",
				"original_error", err,
				"rollback_error", rbErr,
			)
			return fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return classifyTimeout(err)
	}

	if err := tx.Commit(); err != nil {
		return classifyTimeout(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classifyTimeout folds MySQL timeout errors into the shared sentinel.
func classifyTimeout(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlMaxExecTimeout) {
		return fmt.Errorf("%v: %w", err, driver.ErrTxTimeout)
	}
	return err
}

// TxHandle is the transaction-scoped handle passed to the transaction
// callback. It implements driver.Handle and repository.SQLExecutor against
// the open *sql.Tx.
type TxHandle struct {
	tx *sql.Tx
}

// Exec runs a raw statement on the transaction.
func (h *TxHandle) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := h.tx.ExecContext(ctx, stmt, args...)
	return err
}

// ExecContext executes a statement within the transaction.
func (h *TxHandle) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return h.tx.ExecContext(ctx, query, args...)
}

// QueryContext executes a query within the transaction.
func (h *TxHandle) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return h.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a single-row query within the transaction.
func (h *TxHandle) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return h.tx.QueryRowContext(ctx, query, args...)
}

// ExecContext executes a statement outside any transaction.
func (a *MySQLAdapter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	queryCtx, cancel := a.withQueryTimeout(ctx)
	defer cancel()
	return a.db.ExecContext(queryCtx, query, args...)
}

// QueryContext executes a query outside any transaction.
func (a *MySQLAdapter) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	queryCtx, cancel := a.withQueryTimeout(ctx)
	defer cancel()
	return a.db.QueryContext(queryCtx, query, args...)
}

// QueryRowContext executes a single-row query outside any transaction.
func (a *MySQLAdapter) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	queryCtx, cancel := a.withQueryTimeout(ctx)
	defer cancel()
	return a.db.QueryRowContext(queryCtx, query, args...)
}

func (a *MySQLAdapter) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.config.QueryTimeout)
}

// toSQLTxOptions maps the driver isolation vocabulary onto database/sql.
func toSQLTxOptions(level driver.IsolationLevel) (*sql.TxOptions, error) {
	switch level {
	case "":
		return nil, nil
	case driver.ReadUncommitted:
		return &sql.TxOptions{Isolation: sql.LevelReadUncommitted}, nil
	case driver.ReadCommitted:
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}, nil
	case driver.RepeatableRead:
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}, nil
	case driver.Serializable:
		return &sql.TxOptions{Isolation: sql.LevelSerializable}, nil
	case driver.Snapshot:
		return nil, fmt.Errorf("snapshot isolation is not supported by mysql")
	default:
		return nil, fmt.Errorf("unsupported isolation level %q", level)
	}
}
