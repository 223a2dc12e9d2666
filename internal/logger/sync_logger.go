// Package logger provides data synchronization logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SyncLogger provides dedicated logging for market data synchronization.
type SyncLogger struct {
	*logrus.Entry
}

// NewSyncLogger creates a new sync logger.
func NewSyncLogger(baseLogger *logrus.Logger) *SyncLogger {
	return &SyncLogger{
		Entry: baseLogger.WithField("component", "datasync"),
	}
}

// LogSyncStarted logs the start of a symbol sync.
func (sl *SyncLogger) LogSyncStarted(symbol, timeframe string, from, to time.Time) {
	sl.WithFields(logrus.Fields{
		"symbol":    symbol,
		"timeframe": timeframe,
		"from":      from.Unix(),
		"to":        to.Unix(),
	}).Info("Bar sync started")
}

// LogSyncCompleted logs a finished sync batch.
func (sl *SyncLogger) LogSyncCompleted(symbol string, barsFetched, barsStored, rowsRejected int, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"symbol":        symbol,
		"bars_fetched":  barsFetched,
		"bars_stored":   barsStored,
		"rows_rejected": rowsRejected,
		"duration_ms":   durationMs,
	}).Info("Bar sync completed")
}

// LogSyncFailed logs a failed sync attempt.
func (sl *SyncLogger) LogSyncFailed(symbol, reason string) {
	sl.WithFields(logrus.Fields{
		"symbol": symbol,
		"reason": reason,
	}).Error("Bar sync failed")
}

// LogStreamEvent logs a live stream lifecycle event.
func (sl *SyncLogger) LogStreamEvent(symbol, event string) {
	sl.WithFields(logrus.Fields{
		"symbol":     symbol,
		"event_type": event,
	}).Info("Bar stream event")
}
