package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/models"
)

// ClickHouseBarArchive implements BarArchive against the ClickHouse bulk
// store. Postgres remains the system of record; the archive exists for
// cheap long-horizon retention.
type ClickHouseBarArchive struct {
	ch *database.ClickHouseDB
}

// NewClickHouseBarArchive creates a new bar archive
func NewClickHouseBarArchive(ch *database.ClickHouseDB) BarArchive {
	return &ClickHouseBarArchive{ch: ch}
}

// ArchiveBars appends a batch of bars to the archive
func (a *ClickHouseBarArchive) ArchiveBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	batch, err := a.ch.Conn().PrepareBatch(ctx,
		"INSERT INTO bars_archive (symbol, timeframe, time, open, high, low, close, volume)")
	if err != nil {
		return fmt.Errorf("failed to prepare archive batch: %w", err)
	}

	for _, b := range bars {
		if err := batch.Append(symbol, timeframe, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to append bar to archive batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send archive batch: %w", err)
	}
	return nil
}

// CountArchived returns the number of archived bars for a symbol/timeframe
func (a *ClickHouseBarArchive) CountArchived(ctx context.Context, symbol, timeframe string) (uint64, error) {
	var count uint64
	err := a.ch.Conn().QueryRow(ctx,
		"SELECT count() FROM bars_archive WHERE symbol = ? AND timeframe = ?",
		symbol, timeframe,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived bars: %w", err)
	}
	return count, nil
}
