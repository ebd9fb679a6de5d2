package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"todolist/internal/config"
	"todolist/pkg/logger"
)

var (
	pool *sql.DB
	once sync.Once
)

// ErrNotConfigured is returned when no DATABASE_URL is set.
var ErrNotConfigured = errors.New("database not configured")

// DB returns the global database connection pool (initialized on first use).
func DB(ctx context.Context) *sql.DB {
	once.Do(func() {
		cfg := config.Get()
		if cfg.DatabaseURL == "" {
			logger.Error(ctx, "DATABASE_URL is not set")
			return
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error(ctx, "Failed to open database", "error", err)
			return
		}
		db.SetMaxOpenConns(cfg.DBPoolSize)
		db.SetMaxIdleConns(cfg.DBPoolSize / 2)
		db.SetConnMaxLifetime(30 * time.Minute)
		pool = db
		logger.Info(ctx, "Database pool initialized", "max_open", cfg.DBPoolSize)
	})
	return pool
}

// InitDB initializes the DB pool and returns it.
func InitDB(ctx context.Context) *sql.DB {
	return DB(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS todos (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL CHECK (btrim(name) <> ''),
	status     TEXT NOT NULL DEFAULT 'active'
	           CHECK (status IN ('active', 'completed', 'archived', 'deleted')),
	owner_id   UUID NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS todos_owner_updated_idx ON todos (owner_id, updated_at DESC);
`

// MigrateOrCreateSchema creates the users and todos tables if they are missing.
func MigrateOrCreateSchema(ctx context.Context) error {
	db := DB(ctx)
	if db == nil {
		return ErrNotConfigured
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	logger.Info(ctx, "Database schema ensured")
	return nil
}
