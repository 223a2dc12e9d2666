// Package service implements the market data synchronization workflow:
// fetch bars from a source, validate the series, store it and optionally
// archive it.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/bars"
	"github.com/yourusername/graphtrader/internal/config"
	"github.com/yourusername/graphtrader/internal/datasource"
	"github.com/yourusername/graphtrader/internal/logger"
	"github.com/yourusername/graphtrader/internal/metrics"
	"github.com/yourusername/graphtrader/internal/models"
	"github.com/yourusername/graphtrader/internal/repository"
)

// defaultBackfill is how far back the first sync of a symbol reaches
const defaultBackfill = 30 * 24 * time.Hour

// SyncMetrics summarizes one sync pass
type SyncMetrics struct {
	Symbols      int
	BarsFetched  int
	BarsStored   int
	RowsRejected int
	Errors       int
	Duration     time.Duration
}

func (m *SyncMetrics) String() string {
	return fmt.Sprintf("%d symbols, %d fetched, %d stored, %d rejected, %d errors in %v",
		m.Symbols, m.BarsFetched, m.BarsStored, m.RowsRejected, m.Errors, m.Duration)
}

// SyncService pulls bars from a data source into the repository
type SyncService struct {
	source  datasource.BarSource
	barRepo repository.BarRepository
	archive repository.BarArchive // optional

	cfg     config.DataSyncConfig
	log     *logrus.Logger
	syncLog *logger.SyncLogger
}

// NewSyncService creates a new sync service. archive may be nil.
func NewSyncService(
	source datasource.BarSource,
	barRepo repository.BarRepository,
	archive repository.BarArchive,
	cfg config.DataSyncConfig,
	log *logrus.Logger,
) *SyncService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncService{
		source:  source,
		barRepo: barRepo,
		archive: archive,
		cfg:     cfg,
		log:     log,
		syncLog: logger.NewSyncLogger(log),
	}
}

// SyncAll synchronizes every configured symbol up to now. Failures on one
// symbol do not stop the others.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncMetrics, error) {
	started := time.Now()
	total := &SyncMetrics{Symbols: len(s.cfg.Symbols)}

	for _, symbol := range s.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			total.Duration = time.Since(started)
			return total, err
		}
		m, err := s.SyncSymbol(ctx, symbol)
		if err != nil {
			total.Errors++
			s.log.WithError(err).WithField("symbol", symbol).Error("Symbol sync failed")
			continue
		}
		total.BarsFetched += m.BarsFetched
		total.BarsStored += m.BarsStored
		total.RowsRejected += m.RowsRejected
	}

	total.Duration = time.Since(started)
	s.log.WithField("summary", total.String()).Info("Sync pass complete")
	return total, nil
}

// SyncSymbol synchronizes one symbol from its last stored bar up to now
func (s *SyncService) SyncSymbol(ctx context.Context, symbol string) (*SyncMetrics, error) {
	started := time.Now()
	m := &SyncMetrics{Symbols: 1}

	interval, err := datasource.TimeframeDuration(s.cfg.Timeframe)
	if err != nil {
		return m, err
	}

	from, err := s.resumePoint(ctx, symbol, interval)
	if err != nil {
		return m, err
	}
	// only fully closed bars
	to := time.Now().UTC().Truncate(interval)
	if !to.After(from) {
		s.log.WithField("symbol", symbol).Debug("Symbol already up to date")
		return m, nil
	}

	s.syncLog.LogSyncStarted(symbol, s.cfg.Timeframe, from, to)

	fetched, err := s.source.FetchBars(ctx, symbol, s.cfg.Timeframe, from, to)
	if err != nil {
		m.Errors++
		metrics.RecordSyncBatch(symbol, "failure", time.Since(started).Seconds())
		s.syncLog.LogSyncFailed(symbol, err.Error())
		return m, fmt.Errorf("fetching %s: %w", symbol, err)
	}
	m.BarsFetched = len(fetched)
	if len(fetched) == 0 {
		metrics.RecordSyncBatch(symbol, "success", time.Since(started).Seconds())
		return m, nil
	}

	if err := bars.ValidateSeries(fetched); err != nil {
		m.Errors++
		m.RowsRejected = len(fetched)
		metrics.RecordSyncBatch(symbol, "failure", time.Since(started).Seconds())
		metrics.RecordSyncRowsRejected(symbol, len(fetched))
		s.syncLog.LogSyncFailed(symbol, err.Error())
		return m, fmt.Errorf("validating %s: %w", symbol, err)
	}

	stored, err := s.storeBatches(ctx, symbol, fetched)
	m.BarsStored = stored
	if err != nil {
		m.Errors++
		metrics.RecordSyncBatch(symbol, "failure", time.Since(started).Seconds())
		s.syncLog.LogSyncFailed(symbol, err.Error())
		return m, err
	}

	m.Duration = time.Since(started)
	metrics.RecordSyncBatch(symbol, "success", m.Duration.Seconds())
	metrics.RecordSyncBarsStored(symbol, stored)
	s.syncLog.LogSyncCompleted(symbol, m.BarsFetched, m.BarsStored, m.RowsRejected, float64(m.Duration.Milliseconds()))
	return m, nil
}

// resumePoint finds where the next sync should start: one interval past the
// last stored bar, or the backfill horizon on first sync
func (s *SyncService) resumePoint(ctx context.Context, symbol string, interval time.Duration) (time.Time, error) {
	latest, err := s.barRepo.GetLatestTime(ctx, symbol, s.cfg.Timeframe)
	if errors.Is(err, models.ErrNotFound) {
		return time.Now().UTC().Add(-defaultBackfill).Truncate(interval), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving resume point for %s: %w", symbol, err)
	}
	return latest.Add(interval), nil
}

func (s *SyncService) storeBatches(ctx context.Context, symbol string, fetched []models.Bar) (int, error) {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	stored := 0
	for i := 0; i < len(fetched); i += batchSize {
		end := i + batchSize
		if end > len(fetched) {
			end = len(fetched)
		}
		chunk := fetched[i:end]

		n, err := s.barRepo.InsertBatch(ctx, symbol, s.cfg.Timeframe, chunk)
		stored += n
		if err != nil {
			return stored, fmt.Errorf("storing %s bars: %w", symbol, err)
		}
		if s.archive != nil {
			if err := s.archive.ArchiveBars(ctx, symbol, s.cfg.Timeframe, chunk); err != nil {
				// the archive is best effort, Postgres stays authoritative
				s.log.WithError(err).WithField("symbol", symbol).Warn("Bar archive write failed")
			}
		}
	}
	return stored, nil
}
