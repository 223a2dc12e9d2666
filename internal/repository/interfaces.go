// Package repository provides data access for bars, strategy documents and
// backtest runs.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/graphtrader/internal/models"
)

// BarRepository defines the interface for bar data access
type BarRepository interface {
	InsertBatch(ctx context.Context, symbol, timeframe string, bars []models.Bar) (int, error)
	GetRange(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error)
	GetLatestTime(ctx context.Context, symbol, timeframe string) (time.Time, error)
	Count(ctx context.Context, symbol, timeframe string) (int64, error)
	DeleteRange(ctx context.Context, symbol, timeframe string, from, to time.Time) (int64, error)
}

// DocumentRepository defines the interface for strategy document storage
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.StrategyDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StrategyDocument, error)
	GetByName(ctx context.Context, name string) (*models.StrategyDocument, error)
	List(ctx context.Context, limit int) ([]*models.StrategyDocument, error)
	Update(ctx context.Context, doc *models.StrategyDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunRepository defines the interface for backtest run persistence
type RunRepository interface {
	Create(ctx context.Context, run *models.BacktestRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
	UpdateState(ctx context.Context, id uuid.UUID, state models.RunState, errMsg *string) error
	SaveResult(ctx context.Context, run *models.BacktestRun) error
}

// BarArchive defines the optional bulk bar archive backed by ClickHouse
type BarArchive interface {
	ArchiveBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error
	CountArchived(ctx context.Context, symbol, timeframe string) (uint64, error)
}
