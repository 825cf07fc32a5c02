// Package storage is the reference persistence layer for the two external
// collaborator interfaces the core depends on — model.ConnectionResolver
// and orchestrator.ConversationStore — plus the progress-event durable log
// behind internal/transport/pgnotify. Grounded in pkg/database/{client,
// config,health}.go's pgx-over-database/sql pooling shape, retargeted from
// an ent-backed client to plain SQL (no generated ent client is vendored
// in this module; ent/schema/*.go is kept as declarative documentation
// only, per DESIGN.md).
package storage

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection-pool configuration, mirroring
// pkg/database/config.go's field set and defaults.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads Config from the environment, following
// pkg/database/config.go's LoadConfigFromEnv defaults and validation.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("STORAGE_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORAGE_DB_PORT: %w", err)
	}
	maxOpen, _ := strconv.Atoi(getEnvOrDefault("STORAGE_DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("STORAGE_DB_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("STORAGE_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORAGE_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("STORAGE_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORAGE_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("STORAGE_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("STORAGE_DB_USER", "querymind"),
		Password:        os.Getenv("STORAGE_DB_PASSWORD"),
		Database:        getEnvOrDefault("STORAGE_DB_NAME", "querymind"),
		SSLMode:         getEnvOrDefault("STORAGE_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}
	return cfg, cfg.Validate()
}

// DSN renders the pgx connection string for this configuration, the same
// format NewClient uses to open its pool — exported so other backends
// (internal/transport/pgnotify's dedicated LISTEN connection) can open a
// second connection against the same database without duplicating the
// format.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Validate checks the configuration, mirroring pkg/database/config.go.
func (c Config) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("STORAGE_DB_MAX_IDLE_CONNS (%d) cannot exceed STORAGE_DB_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("STORAGE_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("STORAGE_DB_MAX_IDLE_CONNS cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
