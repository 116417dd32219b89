package uow

import (
	"time"

	"github.com/struktos/unitofwork/pkg/driver"
	"github.com/struktos/unitofwork/pkg/observability/logger"
	"github.com/struktos/unitofwork/pkg/observability/metrics"
)

// Config holds unit-of-work defaults. Start with DefaultConfig and override
// fields as needed; a zero Config disables savepoints and logs nothing.
type Config struct {
	// DefaultTimeout bounds the lifetime of each transaction unless
	// overridden per Start call.
	DefaultTimeout time.Duration

	// DefaultMaxWait bounds how long starting a transaction may wait for the
	// underlying client.
	DefaultMaxWait time.Duration

	// DefaultIsolation is the isolation level used when a Start call does not
	// choose one.
	DefaultIsolation driver.IsolationLevel

	// EnableSavepoints turns the savepoint operations on. Disable for
	// databases without savepoint support.
	EnableSavepoints bool

	// Logger receives lifecycle transitions. Observational only; nil means
	// no logging.
	Logger logger.Logger

	// Metrics receives transaction outcome metrics. Nil means no metrics.
	Metrics *metrics.TransactionMetrics
}

// DefaultConfig returns the default unit-of-work configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:   30 * time.Second,
		DefaultMaxWait:   5 * time.Second,
		DefaultIsolation: driver.ReadCommitted,
		EnableSavepoints: true,
	}
}

func (c Config) withDefaults() Config {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	if c.DefaultMaxWait <= 0 {
		c.DefaultMaxWait = 5 * time.Second
	}
	if c.DefaultIsolation == "" {
		c.DefaultIsolation = driver.ReadCommitted
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
	return c
}

// TxResult reports the outcome of a Commit or Rollback call.
type TxResult struct {
	// Success is true when the requested finalization completed.
	Success bool

	// Duration is the time from Start to finalization. Zero for the tolerant
	// no-op rollback of a transaction that never started.
	Duration time.Duration

	// TraceID is the correlation trace id, when one was attached.
	TraceID string
}

// SavepointInfo describes a savepoint within the current transaction.
// Creation order decides which later savepoints a rollback invalidates.
type SavepointInfo struct {
	Name      string
	CreatedAt time.Time

	seq uint64
}
