package database

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/yourusername/graphtrader/internal/config"
)

// ClickHouseDB wraps the native ClickHouse connection used for the bulk bar
// archive. It is optional: callers must tolerate a nil archive.
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB opens and verifies a ClickHouse connection
func NewClickHouseDB(ctx context.Context, cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("clickhouse address is required")
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Conn returns the underlying native connection
func (c *ClickHouseDB) Conn() driver.Conn {
	return c.conn
}

// Ping verifies connectivity
func (c *ClickHouseDB) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close terminates the connection
func (c *ClickHouseDB) Close() error {
	return c.conn.Close()
}
