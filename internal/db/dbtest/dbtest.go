// Package dbtest opens the integration test database. Tests using it are
// skipped unless TEST_DATABASE_DSN points at a disposable PostgreSQL database.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

const dsnEnv = "TEST_DATABASE_DSN"

// Open connects to the test database, applies migrations and empties every
// table before and after the test.
func Open(t *testing.T) *db.Postgres {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s is not set, skipping database test", dsnEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping test database: %v", err)
	}

	pg := &db.Postgres{Pool: pool}
	if err := pg.Migrate(migrationsDir()); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	truncate(t, pg)
	t.Cleanup(func() {
		truncate(t, pg)
		pg.Close()
	})
	return pg
}

func truncate(t *testing.T, pg *db.Postgres) {
	t.Helper()
	_, err := pg.Pool.Exec(context.Background(), `
		TRUNCATE TABLE reviews, refund_tickets, payment_transactions, order_items, orders,
			cart_items, carts, products
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}
