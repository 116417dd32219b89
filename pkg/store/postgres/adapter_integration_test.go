package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/struktos/unitofwork/pkg/driver"
	"github.com/struktos/unitofwork/pkg/observability/logger"
	"github.com/struktos/unitofwork/pkg/repository"
	"github.com/struktos/unitofwork/pkg/testutil"
	"github.com/struktos/unitofwork/pkg/uow"
)

// TestPostgreSQLAdapter_Integration runs the full unit-of-work cycle against a
// real PostgreSQL instance using testcontainers.
func TestPostgreSQLAdapter_Integration(t *testing.T) {
	testutil.RequireDocker(t)

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.InfoLevel,
		Format: logger.JSONFormat,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	adapter, err := NewPostgreSQLAdapter(Config{
		URL:             connStr,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}, log)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	defer adapter.Close()

	if _, err := adapter.DB().ExecContext(ctx, `
		CREATE TABLE accounts (
			owner   TEXT PRIMARY KEY,
			balance BIGINT NOT NULL
		)
	`); err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	resetAccounts := func(t *testing.T) {
		t.Helper()
		if _, err := adapter.DB().ExecContext(ctx,
			"TRUNCATE accounts; INSERT INTO accounts (owner, balance) VALUES ('alice', 100), ('bob', 10)",
		); err != nil {
			t.Fatalf("Failed to reset accounts: %v", err)
		}
	}

	balance := func(t *testing.T, owner string) int64 {
		t.Helper()
		var b int64
		if err := adapter.DB().QueryRowContext(ctx,
			"SELECT balance FROM accounts WHERE owner = $1", owner,
		).Scan(&b); err != nil {
			t.Fatalf("Failed to read balance: %v", err)
		}
		return b
	}

	acctToken := uow.ByName("accounts")
	factory := uow.NewFactory(adapter, uow.DefaultConfig()).
		RegisterRepository(acctToken, func(h driver.Handle) any {
			return &accountStore{exec: h.(repository.SQLExecutor)}
		})

	t.Run("CommitPersists", func(t *testing.T) {
		resetAccounts(t)
		u := factory.Create()
		defer u.Close()

		if err := u.Start(ctx, nil); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		repo, err := u.GetRepository(acctToken)
		if err != nil {
			t.Fatalf("GetRepository failed: %v", err)
		}
		accounts := repo.(*accountStore)
		if err := accounts.transfer(ctx, "alice", "bob", 25); err != nil {
			t.Fatalf("transfer failed: %v", err)
		}

		// Uncommitted work is invisible outside the transaction.
		if got := balance(t, "alice"); got != 100 {
			t.Fatalf("expected isolation before commit, alice=%d", got)
		}

		res, err := u.Commit(ctx)
		if err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if !res.Success {
			t.Fatal("expected successful commit result")
		}
		if got := balance(t, "alice"); got != 75 {
			t.Errorf("expected alice=75 after commit, got %d", got)
		}
		if got := balance(t, "bob"); got != 35 {
			t.Errorf("expected bob=35 after commit, got %d", got)
		}
	})

	t.Run("RollbackDiscards", func(t *testing.T) {
		resetAccounts(t)
		u := factory.Create()
		defer u.Close()

		if err := u.Start(ctx, nil); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		repo, err := u.GetRepository(acctToken)
		if err != nil {
			t.Fatalf("GetRepository failed: %v", err)
		}
		if err := repo.(*accountStore).transfer(ctx, "alice", "bob", 25); err != nil {
			t.Fatalf("transfer failed: %v", err)
		}
		if _, err := u.Rollback(ctx); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}
		if got := balance(t, "alice"); got != 100 {
			t.Errorf("expected alice=100 after rollback, got %d", got)
		}
	})

	t.Run("SavepointPartialRollback", func(t *testing.T) {
		resetAccounts(t)
		u := factory.Create()
		defer u.Close()

		if err := u.Start(ctx, nil); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		repo, err := u.GetRepository(acctToken)
		if err != nil {
			t.Fatalf("GetRepository failed: %v", err)
		}
		accounts := repo.(*accountStore)

		if err := accounts.transfer(ctx, "alice", "bob", 10); err != nil {
			t.Fatalf("first transfer failed: %v", err)
		}
		if err := u.CreateSavepoint(ctx, "after_first"); err != nil {
			t.Fatalf("CreateSavepoint failed: %v", err)
		}
		if err := accounts.transfer(ctx, "alice", "bob", 50); err != nil {
			t.Fatalf("second transfer failed: %v", err)
		}
		if err := u.RollbackToSavepoint(ctx, "after_first"); err != nil {
			t.Fatalf("RollbackToSavepoint failed: %v", err)
		}
		if _, err := u.Commit(ctx); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		if got := balance(t, "alice"); got != 90 {
			t.Errorf("expected alice=90 (only first transfer), got %d", got)
		}
		if got := balance(t, "bob"); got != 20 {
			t.Errorf("expected bob=20 (only first transfer), got %d", got)
		}
	})

	t.Run("TimeoutRollsBack", func(t *testing.T) {
		resetAccounts(t)
		u := factory.Create()
		defer u.Close()

		if err := u.Start(ctx, &driver.TxOptions{Timeout: 500 * time.Millisecond}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		repo, err := u.GetRepository(acctToken)
		if err != nil {
			t.Fatalf("GetRepository failed: %v", err)
		}
		if err := repo.(*accountStore).transfer(ctx, "alice", "bob", 25); err != nil {
			t.Fatalf("transfer failed: %v", err)
		}

		deadline := time.Now().Add(5 * time.Second)
		for u.State() == uow.StateActive && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		if got := u.State(); got != uow.StateFailed {
			t.Fatalf("expected failed state after timeout, got %s", got)
		}
		if got := balance(t, "alice"); got != 100 {
			t.Errorf("expected alice=100 after timed-out transaction, got %d", got)
		}
	})
}

// accountStore is the transaction-bound repository used by the integration
// tests.
type accountStore struct {
	exec repository.SQLExecutor
}

func (s *accountStore) transfer(ctx context.Context, from, to string, amount int64) error {
	if _, err := s.exec.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - $1 WHERE owner = $2", amount, from,
	); err != nil {
		return err
	}
	_, err := s.exec.ExecContext(ctx,
		"UPDATE accounts SET balance = balance + $1 WHERE owner = $2", amount, to,
	)
	return err
}
