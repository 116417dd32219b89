// Package mongodb provides the MongoDB interactive-transaction adapter.
// MongoDB transactions run on a session; the adapter maps the session
// lifecycle onto the driver.Client contract. Savepoints and raw statements
// are not part of MongoDB's model, so the handle rejects Exec and the unit of
// work should be configured with savepoints disabled.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/struktos/unitofwork/pkg/driver"
	"github.com/struktos/unitofwork/pkg/observability/logger"
)

// MongoDBAdapter provides MongoDB connectivity and interactive transactions.
type MongoDBAdapter struct {
	client   *mongo.Client
	database string
	logger   logger.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// Config holds MongoDB adapter configuration.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// NewMongoDBAdapter creates a MongoDB adapter and verifies connectivity via ping.
func NewMongoDBAdapter(cfg Config, log logger.Logger) (*MongoDBAdapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb URL is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB connection established", "database", cfg.Database)
	return &MongoDBAdapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

// Client returns the underlying mongo client.
func (a *MongoDBAdapter) Client() *mongo.Client {
	return a.client
}

// Database returns the configured database.
func (a *MongoDBAdapter) Database() *mongo.Database {
	return a.client.Database(a.database)
}

// Ping verifies the connection is alive.
func (a *MongoDBAdapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fmt.Errorf("mongodb adapter is closed")
	}
	return a.client.Ping(ctx, readpref.Primary())
}

// HealthCheck verifies the connection is healthy with a timeout.
func (a *MongoDBAdapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("MongoDB health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Close gracefully closes the connection.
func (a *MongoDBAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	return nil
}

// Transact executes fn exactly once inside a MongoDB transaction. The session
// transaction is started and finalized manually rather than through the
// driver's WithTransaction helper, which may re-invoke its callback on
// transient errors; the unit-of-work rendezvous requires exactly-once
// callback execution. Isolation options are not mapped: MongoDB transactions
// always run at the session's snapshot-like read concern.
func (a *MongoDBAdapter) Transact(ctx context.Context, opts driver.TxOptions, fn func(ctx context.Context, h driver.Handle) error) error {
	sess, err := a.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongodb session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("failed to begin mongodb transaction: %w", err)
	}

	handle := &TxHandle{adapter: a, session: sess}
	err = mongo.WithSession(txCtx, sess, func(sc mongo.SessionContext) error {
		return fn(sc, handle)
	})
	if err != nil {
		if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
			a.logger.Error("failed to abort mongodb transaction",
				"original_error", err,
				"abort_error", abortErr,
			)
		}
		if errors.Is(err, context.DeadlineExceeded) && txCtx.Err() != nil {
			return fmt.Errorf("mongodb transaction timed out: %w", driver.ErrTxTimeout)
		}
		return err
	}

	if err := sess.CommitTransaction(txCtx); err != nil {
		return fmt.Errorf("failed to commit mongodb transaction: %w", err)
	}
	return nil
}

// TxHandle is the transaction-scoped handle passed to the transaction
// callback. It implements driver.Handle (raw statements rejected) and the
// document.Executor surface against the session-scoped database.
type TxHandle struct {
	adapter *MongoDBAdapter
	session mongo.Session
}

// Exec rejects raw statements; MongoDB has no savepoint vocabulary.
func (h *TxHandle) Exec(ctx context.Context, stmt string, args ...any) error {
	return driver.ErrRawUnsupported
}

func (h *TxHandle) sessionContext(ctx context.Context) mongo.SessionContext {
	return mongo.NewSessionContext(ctx, h.session)
}

// InsertOne inserts a document within the transaction.
func (h *TxHandle) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	_, err := h.adapter.Database().Collection(collection).InsertOne(h.sessionContext(ctx), doc)
	return err
}

// FindOne retrieves a single document within the transaction.
func (h *TxHandle) FindOne(ctx context.Context, collection string, filter map[string]interface{}, result interface{}) error {
	return h.adapter.Database().Collection(collection).FindOne(h.sessionContext(ctx), filter).Decode(result)
}

// UpdateOne updates a single document within the transaction, returning the
// matched count.
func (h *TxHandle) UpdateOne(ctx context.Context, collection string, filter, update map[string]interface{}) (int64, error) {
	res, err := h.adapter.Database().Collection(collection).UpdateOne(h.sessionContext(ctx), filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// DeleteOne removes a single document within the transaction, returning the
// deleted count.
func (h *TxHandle) DeleteOne(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	res, err := h.adapter.Database().Collection(collection).DeleteOne(h.sessionContext(ctx), filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of documents matching filter within the transaction.
func (h *TxHandle) Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	if filter == nil {
		filter = map[string]interface{}{}
	}
	return h.adapter.Database().Collection(collection).CountDocuments(h.sessionContext(ctx), filter)
}
