// Package logger provides backtest run logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RunLogger provides dedicated logging for backtest run lifecycle events.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a new run logger.
func NewRunLogger(baseLogger *logrus.Logger) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogRunStarted logs the start of a backtest run.
func (rl *RunLogger) LogRunStarted(runID, symbol string, bars int, initialBalance float64) {
	rl.WithFields(logrus.Fields{
		"run_id":          runID,
		"symbol":          symbol,
		"bars":            bars,
		"initial_balance": initialBalance,
	}).Info("Backtest run started")
}

// LogRunProgress logs a progress update.
func (rl *RunLogger) LogRunProgress(runID string, processed, total int) {
	rl.WithFields(logrus.Fields{
		"run_id":    runID,
		"processed": processed,
		"total":     total,
	}).Debug("Backtest run progress")
}

// LogRunCompleted logs a finished run with its headline figures.
func (rl *RunLogger) LogRunCompleted(runID string, trades int, finalBalance, netProfit, maxDrawdown float64, durationMs float64) {
	rl.WithFields(logrus.Fields{
		"run_id":        runID,
		"trades":        trades,
		"final_balance": finalBalance,
		"net_profit":    netProfit,
		"max_drawdown":  maxDrawdown,
		"duration_ms":   durationMs,
	}).Info("Backtest run completed")
}

// LogRunFailed logs a failed run.
func (rl *RunLogger) LogRunFailed(runID, reason string) {
	rl.WithFields(logrus.Fields{
		"run_id": runID,
		"reason": reason,
	}).Error("Backtest run failed")
}

// LogRunCancelled logs a cancelled run.
func (rl *RunLogger) LogRunCancelled(runID string, atBar int) {
	rl.WithFields(logrus.Fields{
		"run_id": runID,
		"at_bar": atBar,
	}).Warn("Backtest run cancelled")
}

// LogGraphWarnings logs compile-time warnings from the strategy graph.
func (rl *RunLogger) LogGraphWarnings(runID string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	rl.WithFields(logrus.Fields{
		"run_id":   runID,
		"warnings": warnings,
	}).Warn("Strategy graph produced warnings")
}

// LogMonteCarlo logs a completed resampling analysis.
func (rl *RunLogger) LogMonteCarlo(runID string, iterations int, seed int64, probabilityOfRuin float64) {
	rl.WithFields(logrus.Fields{
		"run_id":              runID,
		"iterations":          iterations,
		"seed":                seed,
		"probability_of_ruin": probabilityOfRuin,
	}).Info("Monte carlo analysis completed")
}
