package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a run summary for terminal output
func GenerateConsoleReport(result *BacktestResult) string {
	s := result.Statistics
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Symbol: %s\n", result.Config.Symbol))
	builder.WriteString(fmt.Sprintf("Initial Balance: %.2f\n", result.Config.InitialBalance))
	builder.WriteString(fmt.Sprintf("Final Balance: %.2f\n", result.FinalBalance))
	builder.WriteString(fmt.Sprintf("Net Profit: %.2f\n", s.NetProfit))
	builder.WriteString(fmt.Sprintf("Total Trades: %d\n", s.TotalTrades))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", s.WinRate*100))
	builder.WriteString(fmt.Sprintf("Profit Factor: %s\n", formatProfitFactor(s.ProfitFactor)))
	builder.WriteString(fmt.Sprintf("Expected Payoff: %.2f\n", s.ExpectedPayoff))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f (%.2f%%)\n", s.MaxDrawdown, s.MaxDrawdownPct*100))
	builder.WriteString(fmt.Sprintf("Recovery Factor: %.2f\n", s.RecoveryFactor))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", s.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Commission Paid: %.2f\n", s.TotalCommission))
	if len(result.Warnings) > 0 {
		builder.WriteString("Warnings:\n")
		for _, w := range result.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}
	return builder.String()
}

// GenerateMonteCarloReport formats the resampling summary
func GenerateMonteCarloReport(mc *MonteCarloResult) string {
	var builder strings.Builder
	builder.WriteString("Monte Carlo Analysis\n")
	builder.WriteString("====================\n")
	builder.WriteString(fmt.Sprintf("Iterations: %d (seed %d)\n", mc.Iterations, mc.Seed))
	builder.WriteString(fmt.Sprintf("Probability of Ruin: %.2f%%\n", mc.ProbabilityOfRuin*100))
	builder.WriteString(fmt.Sprintf("Final Balance  P5: %.2f  P50: %.2f  P95: %.2f  P99: %.2f\n",
		mc.FinalBalance.P5, mc.FinalBalance.P50, mc.FinalBalance.P95, mc.FinalBalance.P99))
	builder.WriteString(fmt.Sprintf("Max Drawdown   P5: %.2f  P50: %.2f  P95: %.2f  P99: %.2f\n",
		mc.MaxDrawdown.P5, mc.MaxDrawdown.P50, mc.MaxDrawdown.P95, mc.MaxDrawdown.P99))
	return builder.String()
}

// ExportJSON writes the full result as indented JSON
func ExportJSON(result *BacktestResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// ExportTradesCSV writes the closed trades for spreadsheets
func ExportTradesCSV(result *BacktestResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var builder strings.Builder
	builder.WriteString("id,direction,open_time,close_time,entry_price,close_price,volume,profit,commission,reason\n")
	for _, t := range result.Trades {
		builder.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.5f,%.5f,%.2f,%.2f,%.2f,%s\n",
			t.ID, t.Direction,
			t.OpenTime.UTC().Format("2006-01-02T15:04:05Z"),
			t.CloseTime.UTC().Format("2006-01-02T15:04:05Z"),
			t.EntryPrice, t.ClosePrice, t.Volume, t.Profit, t.Commission, t.Reason))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}

// ExportEquityCSV writes the per-bar equity curve
func ExportEquityCSV(result *BacktestResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(result.EquityCurve.ToCSV()), 0o644)
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
