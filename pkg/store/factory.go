package store

import (
	"fmt"
	"strings"

	"github.com/struktos/unitofwork/pkg/config"
	"github.com/struktos/unitofwork/pkg/observability/logger"
	"github.com/struktos/unitofwork/pkg/store/mongodb"
	"github.com/struktos/unitofwork/pkg/store/mysql"
	"github.com/struktos/unitofwork/pkg/store/postgres"
)

// NewTransactor selects and initializes the storage adapter from config.
// It does not manage fallback between providers.
func NewTransactor(cfg config.DatabaseConfig, log logger.Logger) (Transactor, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "postgres":
		return postgres.NewPostgreSQLAdapter(postgres.Config{
			URL:             cfg.URL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			QueryTimeout:    cfg.QueryTimeout,
		}, log)
	case "mysql":
		return mysql.NewMySQLAdapter(mysql.Config{
			URL:             cfg.URL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			QueryTimeout:    cfg.QueryTimeout,
		}, log)
	case "mongodb":
		return mongodb.NewMongoDBAdapter(mongodb.Config{
			URL:              cfg.URL,
			Database:         cfg.DatabaseName,
			ConnectTimeout:   cfg.ConnectTimeout,
			OperationTimeout: cfg.QueryTimeout,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: postgres, mysql, mongodb)", cfg.Type)
	}
}
