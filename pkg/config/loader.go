package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
}

// NewViperLoader creates a new ViperLoader.
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "UOW")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// Load loads configuration with precedence: ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	l.setDefaults(v, defaults)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (l *ViperLoader) setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database.type", d.Database.Type)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("database.connect_timeout", d.Database.ConnectTimeout)
	v.SetDefault("database.query_timeout", d.Database.QueryTimeout)
	v.SetDefault("unit_of_work.default_timeout", d.UnitOfWork.DefaultTimeout)
	v.SetDefault("unit_of_work.default_max_wait", d.UnitOfWork.DefaultMaxWait)
	v.SetDefault("unit_of_work.default_isolation", d.UnitOfWork.DefaultIsolation)
	v.SetDefault("unit_of_work.enable_savepoints", d.UnitOfWork.EnableSavepoints)
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.type", l.prefixedEnv("DATABASE_TYPE"))
	v.BindEnv("database.url", l.prefixedEnv("DATABASE_URL"))
	v.BindEnv("database.database_name", l.prefixedEnv("DATABASE_NAME"))
	v.BindEnv("database.max_open_conns", l.prefixedEnv("DATABASE_MAX_OPEN_CONNS"))
	v.BindEnv("database.max_idle_conns", l.prefixedEnv("DATABASE_MAX_IDLE_CONNS"))
	v.BindEnv("database.conn_max_lifetime", l.prefixedEnv("DATABASE_CONN_MAX_LIFETIME"))
	v.BindEnv("database.conn_max_idle_time", l.prefixedEnv("DATABASE_CONN_MAX_IDLE_TIME"))
	v.BindEnv("database.connect_timeout", l.prefixedEnv("DATABASE_CONNECT_TIMEOUT"))
	v.BindEnv("database.query_timeout", l.prefixedEnv("DATABASE_QUERY_TIMEOUT"))
	v.BindEnv("unit_of_work.default_timeout", l.prefixedEnv("TX_DEFAULT_TIMEOUT"))
	v.BindEnv("unit_of_work.default_max_wait", l.prefixedEnv("TX_DEFAULT_MAX_WAIT"))
	v.BindEnv("unit_of_work.default_isolation", l.prefixedEnv("TX_DEFAULT_ISOLATION"))
	v.BindEnv("unit_of_work.enable_savepoints", l.prefixedEnv("TX_ENABLE_SAVEPOINTS"))
	v.BindEnv("logger.level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("logger.format", l.prefixedEnv("LOG_FORMAT"))
	v.BindEnv("metrics.enabled", l.prefixedEnv("METRICS_ENABLED"))
}

func (l *ViperLoader) prefixedEnv(name string) string {
	if l.envPrefix == "" {
		return name
	}
	return l.envPrefix + "_" + name
}

// Validate checks the configuration for consistency
func (l *ViperLoader) Validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Database.Type)) {
	case "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("unsupported database.type %q (supported: postgres, mysql, mongodb)", cfg.Database.Type)
	}

	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if strings.EqualFold(cfg.Database.Type, "mongodb") {
		if cfg.Database.DatabaseName == "" {
			return fmt.Errorf("database.database_name is required for mongodb")
		}
		if cfg.UnitOfWork.EnableSavepoints {
			return fmt.Errorf("unit_of_work.enable_savepoints must be false for mongodb")
		}
	}

	switch cfg.UnitOfWork.DefaultIsolation {
	case "", "read_uncommitted", "read_committed", "repeatable_read", "serializable", "snapshot":
	default:
		return fmt.Errorf("unsupported unit_of_work.default_isolation %q", cfg.UnitOfWork.DefaultIsolation)
	}

	if cfg.UnitOfWork.DefaultTimeout < 0 || cfg.UnitOfWork.DefaultMaxWait < 0 {
		return fmt.Errorf("unit_of_work timeouts must not be negative")
	}
	return nil
}
