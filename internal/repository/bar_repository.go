package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/models"
)

const errScanBar = "failed to scan bar: %w"

// PostgresBarRepository implements BarRepository for PostgreSQL
type PostgresBarRepository struct {
	db *database.DB
}

// NewPostgresBarRepository creates a new bar repository
func NewPostgresBarRepository(db *database.DB) BarRepository {
	return &PostgresBarRepository{db: db}
}

// InsertBatch bulk-inserts bars via COPY into a staging pattern: duplicates
// on (symbol, timeframe, time) are skipped with an upsert fallback when COPY
// fails. Returns the number of rows written.
func (r *PostgresBarRepository) InsertBatch(ctx context.Context, symbol, timeframe string, bars []models.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	columns := []string{"symbol", "timeframe", "time", "open", "high", "low", "close", "volume"}
	rows := make([][]interface{}, len(bars))
	for i, b := range bars {
		rows[i] = []interface{}{symbol, timeframe, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume}
	}

	count, err := r.db.GetPool().CopyFrom(ctx, pgx.Identifier{"bars"}, columns, pgx.CopyFromRows(rows))
	if err == nil {
		return int(count), nil
	}

	// COPY aborts on conflicts; fall back to row-wise upsert
	inserted := 0
	upsert := `
		INSERT INTO bars (symbol, timeframe, time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, time) DO NOTHING
	`
	for _, b := range bars {
		tag, execErr := r.db.GetPool().Exec(ctx, upsert,
			symbol, timeframe, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume)
		if execErr != nil {
			return inserted, fmt.Errorf("failed to insert bar at %s: %w", b.Time.Format(time.RFC3339), execErr)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// GetRange retrieves bars for a symbol and timeframe within [from, to)
// ordered by time
func (r *PostgresBarRepository) GetRange(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error) {
	query := `
		SELECT time, open, high, low, close, volume
		FROM bars
		WHERE symbol = $1 AND timeframe = $2 AND time >= $3 AND time < $4
		ORDER BY time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf(errScanBar, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetLatestTime returns the most recent bar time for a symbol and timeframe.
// models.ErrNotFound is returned when no bars are stored.
func (r *PostgresBarRepository) GetLatestTime(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	query := `SELECT MAX(time) FROM bars WHERE symbol = $1 AND timeframe = $2`

	var latest *time.Time
	err := r.db.GetPool().QueryRow(ctx, query, symbol, timeframe).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest bar time: %w", err)
	}
	if latest == nil {
		return time.Time{}, models.ErrNotFound
	}
	return *latest, nil
}

// Count returns the number of stored bars for a symbol and timeframe
func (r *PostgresBarRepository) Count(ctx context.Context, symbol, timeframe string) (int64, error) {
	query := `SELECT COUNT(*) FROM bars WHERE symbol = $1 AND timeframe = $2`

	var count int64
	if err := r.db.GetPool().QueryRow(ctx, query, symbol, timeframe).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return count, nil
}

// DeleteRange removes bars within [from, to) and reports how many went away
func (r *PostgresBarRepository) DeleteRange(ctx context.Context, symbol, timeframe string, from, to time.Time) (int64, error) {
	query := `DELETE FROM bars WHERE symbol = $1 AND timeframe = $2 AND time >= $3 AND time < $4`

	tag, err := r.db.GetPool().Exec(ctx, query, symbol, timeframe, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bars: %w", err)
	}
	return tag.RowsAffected(), nil
}
