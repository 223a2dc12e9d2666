package database

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/graphtrader/internal/config"
)

// SetupTestDB creates a test database connection and verifies it. Tests that
// call it are skipped when no test database is reachable.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg, err := config.Load("../../config/config.test.yaml")
	if err != nil {
		t.Skipf("no test config available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer verifyCancel()
	if err := db.Ping(verifyCtx); err != nil {
		db.Close()
		t.Skipf("test database not responding: %v", err)
	}

	return db
}

// TeardownTestDB closes the database connection cleanly
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}
