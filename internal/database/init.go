package database

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/config"
)

// Initialize creates a database connection pool and checks migration state
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// Verify migrations are applied by checking schema_migrations. The table
	// may not exist on a fresh install, which is fine for initial setup.
	var migrationCount int
	err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount)
	if err != nil {
		if log != nil {
			log.Warn("schema_migrations table not found; run database migrations")
		}
		return db, nil
	}
	if migrationCount == 0 && log != nil {
		log.Warn("No migrations have been applied; run database migrations")
	}

	return db, nil
}
