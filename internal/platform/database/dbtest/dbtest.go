// Package dbtest starts a throwaway PostgreSQL container for integration
// tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xzeeeeen/HM/internal/platform/database"
)

const image = "postgres:16-alpine"

// Start runs PostgreSQL in a container, applies the scripts and returns a
// connected pool. The test is skipped in short mode or when Docker is not
// available.
func Start(t testing.TB, scripts ...string) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("hm"),
		postgres.WithUsername("hm"),
		postgres.WithPassword("hm"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	db, err := database.New(ctx, url, 5, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx, scripts...); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}
