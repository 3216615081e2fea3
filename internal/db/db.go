package db

import (
	"context"
	"time"

	"chatroom/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var Pool *pgxpool.Pool

// InitDB initializes the PostgreSQL connection pool
func InitDB(ctx context.Context, connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return errors.Wrap(err, "unable to parse connection string")
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	Pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return errors.Wrap(err, "unable to create connection pool")
	}

	if err := Pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "unable to ping database")
	}

	logger.Info("db_connected", "host", config.ConnConfig.Host, "database", config.ConnConfig.Database)
	return nil
}

// CloseDB closes the database connection pool
func CloseDB() {
	if Pool != nil {
		Pool.Close()
	}
}

// Schema is applied statement by statement on startup; every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS room_participants (
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL CHECK (type IN ('direct', 'room')),
		sender     TEXT NOT NULL,
		receiver   TEXT NOT NULL,
		body       TEXT NOT NULL,
		readers    TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_receiver_created_idx ON messages (receiver, created_at)`,
	`CREATE INDEX IF NOT EXISTS messages_sender_created_idx ON messages (sender, created_at)`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := Pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
