package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/graphtrader/internal/datasource"
	"github.com/yourusername/graphtrader/internal/metrics"
	"github.com/yourusername/graphtrader/internal/models"
)

func streamHealthTicker() *time.Ticker {
	return time.NewTicker(5 * time.Second)
}

// RunLive connects the kline stream and stores every closed bar as it
// arrives. It blocks until ctx is cancelled or the stream drops.
func (s *SyncService) RunLive(ctx context.Context, stream *datasource.KlineStreamClient) error {
	stream.AddHandler(func(symbol string, bar models.Bar) error {
		n, err := s.barRepo.InsertBatch(ctx, symbol, s.cfg.Timeframe, []models.Bar{bar})
		if err != nil {
			return fmt.Errorf("storing live bar for %s: %w", symbol, err)
		}
		if n > 0 {
			metrics.RecordSyncBarsStored(symbol, n)
		}
		if s.archive != nil {
			if err := s.archive.ArchiveBars(ctx, symbol, s.cfg.Timeframe, []models.Bar{bar}); err != nil {
				s.log.WithError(err).WithField("symbol", symbol).Warn("Bar archive write failed")
			}
		}
		return nil
	})

	if err := stream.Connect(ctx); err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Subscribe(ctx, s.cfg.Symbols, s.cfg.Timeframe); err != nil {
		return err
	}
	for _, symbol := range s.cfg.Symbols {
		s.syncLog.LogStreamEvent(symbol, "subscribed")
	}

	ticker := streamHealthTicker()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// a disconnected stream is redialing; only a closed one is gone
			if stream.IsClosed() {
				return fmt.Errorf("stream connection lost")
			}
		}
	}
}
