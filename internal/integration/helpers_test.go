package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"taskboard/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

// uniqueEmail keeps runs against a shared database apart.
func uniqueEmail(t *testing.T, name string) string {
	return fmt.Sprintf("%s-%d@it.example.com", name, time.Now().UnixNano())
}

func cleanupOwner(t *testing.T, pool *pgxpool.Pool, owners ...string) {
	t.Cleanup(func() {
		for _, o := range owners {
			_, _ = pool.Exec(context.Background(), `DELETE FROM tasks WHERE owner = $1`, o)
			_, _ = pool.Exec(context.Background(), `DELETE FROM audit_logs WHERE identity = $1`, o)
		}
	})
}
