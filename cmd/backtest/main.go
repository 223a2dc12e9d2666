// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/backtest"
	"github.com/yourusername/graphtrader/internal/bars"
	"github.com/yourusername/graphtrader/internal/config"
	"github.com/yourusername/graphtrader/internal/graph"
	"github.com/yourusername/graphtrader/internal/logger"
	"github.com/yourusername/graphtrader/internal/models"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		graphPath  = flag.String("graph", "", "Path to strategy graph JSON (required)")
		barsPath   = flag.String("bars", "", "Path to bar CSV file (required)")
		symbol     = flag.String("symbol", "", "Override symbol from config")
		mode       = flag.String("mode", "backtest", "Mode: backtest, monte-carlo, walk-forward, all")
		output     = flag.String("output", "", "Override output directory for results")
	)
	flag.Parse()

	cfg, log := loadConfigAndLogger(*configPath)

	if *graphPath == "" || *barsPath == "" {
		log.Fatal("both -graph and -bars are required")
	}

	doc := loadDocument(*graphPath, log)
	series := loadBars(*barsPath, log)
	btConfig := buildBacktestConfig(cfg, *symbol)

	outDir := cfg.Backtest.OutputPath
	if *output != "" {
		outDir = *output
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := backtest.NewEngine(btConfig, doc, series)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	engine.SetLogger(log)
	engine.SetProgressFunc(func(processed, total int) {
		if processed == total || processed%100000 == 0 {
			log.WithFields(logrus.Fields{"processed": processed, "total": total}).Debug("Replay progress")
		}
	})

	log.WithFields(logrus.Fields{
		"mode":   *mode,
		"symbol": btConfig.Symbol,
		"bars":   len(series),
	}).Info("Starting backtest")

	result, err := engine.Run(ctx)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	fmt.Print(backtest.GenerateConsoleReport(result))
	exportResults(result, outDir, log)

	switch *mode {
	case "backtest":
	case "monte-carlo":
		runMonteCarlo(cfg, result, log)
	case "walk-forward":
		runWalkForward(ctx, btConfig, doc, series, log)
	case "all":
		runMonteCarlo(cfg, result, log)
		runWalkForward(ctx, btConfig, doc, series, log)
	default:
		log.Fatalf("Unsupported mode: %s", *mode)
	}
}

func loadConfigAndLogger(path string) (*config.Config, *logrus.Logger) {
	bootstrap := logger.NewLogger("info")

	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		bootstrap.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			bootstrap.Fatal("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			bootstrap.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		bootstrap.Fatalf("Invalid configuration: %v", err)
	}
	return cfg, logger.NewLogger(cfg.App.LogLevel)
}

func loadDocument(path string, log *logrus.Logger) *graph.Document {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read strategy graph: %v", err)
	}
	doc, err := graph.Parse(data)
	if err != nil {
		log.Fatalf("Invalid strategy graph: %v", err)
	}
	return doc
}

func loadBars(path string, log *logrus.Logger) []models.Bar {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open bar file: %v", err)
	}
	defer f.Close()

	series, err := bars.ParseCSV(f)
	if err != nil {
		log.Fatalf("Failed to parse bars: %v", err)
	}
	return series
}

func buildBacktestConfig(cfg *config.Config, symbolOverride string) backtest.BacktestConfig {
	symbol := symbolOverride
	if symbol == "" && len(cfg.DataSync.Symbols) > 0 {
		symbol = cfg.DataSync.Symbols[0]
	}
	return backtest.BacktestConfig{
		InitialBalance:   cfg.Backtest.InitialBalance,
		Symbol:           symbol,
		SpreadPoints:     cfg.Backtest.SpreadPoints,
		CommissionPerLot: cfg.Backtest.CommissionPerLot,
		Digits:           cfg.Backtest.Digits,
		PointValue:       cfg.Backtest.PointValue,
	}
}

func exportResults(result *backtest.BacktestResult, outDir string, log *logrus.Logger) {
	if outDir == "" {
		return
	}
	if err := backtest.ExportJSON(result, filepath.Join(outDir, "result.json")); err != nil {
		log.Fatalf("Failed to export result JSON: %v", err)
	}
	if err := backtest.ExportTradesCSV(result, filepath.Join(outDir, "trades.csv")); err != nil {
		log.Fatalf("Failed to export trades CSV: %v", err)
	}
	if err := backtest.ExportEquityCSV(result, filepath.Join(outDir, "equity.csv")); err != nil {
		log.Fatalf("Failed to export equity CSV: %v", err)
	}
	log.WithField("output", outDir).Info("Results exported")
}

func runMonteCarlo(cfg *config.Config, result *backtest.BacktestResult, log *logrus.Logger) {
	if len(result.Trades) == 0 {
		log.Warn("No trades to resample, skipping Monte Carlo")
		return
	}
	mcCfg := backtest.MonteCarloConfig{
		Iterations:    cfg.MonteCarlo.Iterations,
		Seed:          cfg.MonteCarlo.Seed,
		RuinThreshold: cfg.MonteCarlo.RuinThreshold,
	}
	mc, err := backtest.RunMonteCarlo(mcCfg, result.Config.InitialBalance, result.Trades)
	if err != nil {
		log.Fatalf("Monte Carlo failed: %v", err)
	}
	fmt.Print(backtest.GenerateMonteCarloReport(mc))
}

func runWalkForward(ctx context.Context, btConfig backtest.BacktestConfig, doc *graph.Document, series []models.Bar, log *logrus.Logger) {
	// quarters in-sample, months out-of-sample on hourly data; rough but
	// serviceable defaults for a CLI pass
	wfCfg := backtest.WalkForwardConfig{
		InSampleBars:    len(series) / 2,
		OutOfSampleBars: len(series) / 4,
		MinTrades:       1,
	}
	if wfCfg.InSampleBars < 2 || wfCfg.OutOfSampleBars < 1 {
		log.Warn("Not enough bars for walk-forward analysis")
		return
	}
	wf, err := backtest.RunWalkForward(ctx, wfCfg, btConfig, doc, series)
	if err != nil {
		log.Fatalf("Walk-forward failed: %v", err)
	}
	log.WithFields(logrus.Fields{
		"windows":     len(wf.Windows),
		"consistency": wf.ConsistencyScore,
		"overfit":     wf.OverfitScore,
	}).Info("Walk-forward completed")
}
