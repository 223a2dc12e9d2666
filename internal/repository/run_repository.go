package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/models"
)

const (
	errScanRun = "failed to scan backtest run: %w"

	runColumns = `id, document_id, symbol, timeframe, state, config, statistics,
	       final_balance, total_trades, error, started_at, completed_at, created_at`
)

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *database.DB
}

// NewPostgresRunRepository creates a new run repository
func NewPostgresRunRepository(db *database.DB) RunRepository {
	return &PostgresRunRepository{db: db}
}

// Create inserts a new run record in its initial state
func (r *PostgresRunRepository) Create(ctx context.Context, run *models.BacktestRun) error {
	query := `
		INSERT INTO backtest_runs (id, document_id, symbol, timeframe, state, config)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		run.ID, run.DocumentID, run.Symbol, run.Timeframe, run.State, run.Config,
	)
	if err != nil {
		return fmt.Errorf("failed to create backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	query := fmt.Sprintf("SELECT %s FROM backtest_runs WHERE id = $1", runColumns)

	run := &models.BacktestRun{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&run.ID, &run.DocumentID, &run.Symbol, &run.Timeframe, &run.State,
		&run.Config, &run.Statistics, &run.FinalBalance, &run.TotalTrades,
		&run.Error, &run.StartedAt, &run.CompletedAt, &run.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}
	return run, nil
}

// GetByDocumentID retrieves all runs of one strategy document, newest first
func (r *PostgresRunRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.BacktestRun, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM backtest_runs
		WHERE document_id = $1
		ORDER BY created_at DESC
	`, runColumns)

	return r.queryRuns(ctx, query, documentID)
}

// GetLatest retrieves the most recent runs
func (r *PostgresRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, runColumns)

	return r.queryRuns(ctx, query, limit)
}

// UpdateState transitions a run's lifecycle state. The started and completed
// timestamps follow the state automatically.
func (r *PostgresRunRepository) UpdateState(ctx context.Context, id uuid.UUID, state models.RunState, errMsg *string) error {
	query := `
		UPDATE backtest_runs SET
			state = $2,
			error = $3,
			started_at = CASE WHEN $2 = 'running' THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
		WHERE id = $1
	`

	tag, err := r.db.GetPool().Exec(ctx, query, id, state, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update run state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SaveResult stores the terminal statistics of a completed run
func (r *PostgresRunRepository) SaveResult(ctx context.Context, run *models.BacktestRun) error {
	query := `
		UPDATE backtest_runs SET
			state = $2, statistics = $3, final_balance = $4, total_trades = $5,
			completed_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.GetPool().Exec(ctx, query,
		run.ID, models.RunStateCompleted, run.Statistics, run.FinalBalance, run.TotalTrades,
	)
	if err != nil {
		return fmt.Errorf("failed to save run result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresRunRepository) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*models.BacktestRun, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run := &models.BacktestRun{}
		err := rows.Scan(
			&run.ID, &run.DocumentID, &run.Symbol, &run.Timeframe, &run.State,
			&run.Config, &run.Statistics, &run.FinalBalance, &run.TotalTrades,
			&run.Error, &run.StartedAt, &run.CompletedAt, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanRun, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
