package db

import (
	"context"
	"fmt"

	"taskboard/internal/logger"
	"taskboard/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(dsn string) *pgxpool.Pool {
	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal("failed to create database pool", "error", err)
	}

	if err := db.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", "error", err)
	}

	logger.Info("database connected")
	return db
}

// Migrate applies every embedded migration in order. The files are
// idempotent, so running it on each start is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) ([]string, error) {
	names, err := migrations.Names()
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	applied := make([]string, 0, len(names))
	for _, name := range names {
		sql, err := migrations.Read(name)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, sql); err != nil {
			return applied, fmt.Errorf("apply %s: %w", name, err)
		}
		logger.Debug("migration applied", "name", name)
		applied = append(applied, name)
	}
	return applied, nil
}
