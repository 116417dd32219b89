// Package config loads library configuration with precedence ENV > file > defaults.
package config

import (
	"time"
)

// Config is the root configuration for the unit-of-work library.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	UnitOfWork UnitOfWorkConfig `mapstructure:"unit_of_work"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// DatabaseConfig selects and configures the database adapter.
type DatabaseConfig struct {
	// Type selects the adapter: postgres, mysql, or mongodb.
	Type string `mapstructure:"type"`

	URL          string `mapstructure:"url"`
	DatabaseName string `mapstructure:"database_name"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// UnitOfWorkConfig holds transaction defaults.
type UnitOfWorkConfig struct {
	DefaultTimeout   time.Duration `mapstructure:"default_timeout"`
	DefaultMaxWait   time.Duration `mapstructure:"default_max_wait"`
	DefaultIsolation string        `mapstructure:"default_isolation"`
	EnableSavepoints bool          `mapstructure:"enable_savepoints"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns the library defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Type:            "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnectTimeout:  5 * time.Second,
			QueryTimeout:    30 * time.Second,
		},
		UnitOfWork: UnitOfWorkConfig{
			DefaultTimeout:   30 * time.Second,
			DefaultMaxWait:   5 * time.Second,
			DefaultIsolation: "read_committed",
			EnableSavepoints: true,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}
