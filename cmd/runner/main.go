// Package main provides the execution host: it replays stored strategy
// documents over stored bars and persists the outcomes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/backtest"
	"github.com/yourusername/graphtrader/internal/config"
	"github.com/yourusername/graphtrader/internal/database"
	"github.com/yourusername/graphtrader/internal/graph"
	"github.com/yourusername/graphtrader/internal/health"
	"github.com/yourusername/graphtrader/internal/logger"
	"github.com/yourusername/graphtrader/internal/metrics"
	"github.com/yourusername/graphtrader/internal/models"
	"github.com/yourusername/graphtrader/internal/repository"
	"github.com/yourusername/graphtrader/internal/worker"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		docName    = flag.String("document", "", "Strategy document name to run (required)")
		symbol     = flag.String("symbol", "", "Symbol to replay (required)")
		fromStr    = flag.String("from", "", "Range start (YYYY-MM-DD, required)")
		toStr      = flag.String("to", "", "Range end (YYYY-MM-DD, required)")
		monteCarlo = flag.Bool("monte-carlo", false, "Run Monte Carlo resampling after the backtest")
	)
	flag.Parse()

	bootstrap := logger.NewLogger("info")
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		bootstrap.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		bootstrap.Fatalf("Invalid configuration: %v", err)
	}
	log := logger.NewLogger(cfg.App.LogLevel)

	if *docName == "" || *symbol == "" || *fromStr == "" || *toStr == "" {
		log.Fatal("-document, -symbol, -from and -to are required")
	}
	from, err := time.Parse("2006-01-02", *fromStr)
	if err != nil {
		log.Fatalf("Invalid -from date: %v", err)
	}
	to, err := time.Parse("2006-01-02", *toStr)
	if err != nil {
		log.Fatalf("Invalid -to date: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db, nil)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	metrics.InitRegistry()
	healthSrv := health.NewServer(health.Config{
		ServiceName: "graphtrader-runner",
		Port:        fmt.Sprintf("%d", cfg.Metrics.Port),
		Logger:      log,
		DB:          db,
		Metrics:     metrics.Handler(),
	})
	if err := healthSrv.Start(ctx); err != nil {
		log.Fatalf("Failed to start health server: %v", err)
	}
	healthSrv.SetReady(true)

	if err := execute(ctx, cfg, repos, log, *docName, *symbol, from, to, *monteCarlo); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

func execute(
	ctx context.Context,
	cfg *config.Config,
	repos *repository.Repositories,
	log *logrus.Logger,
	docName, symbol string,
	from, to time.Time,
	monteCarlo bool,
) error {
	stored, err := repos.Documents.GetByName(ctx, docName)
	if err != nil {
		return fmt.Errorf("loading document %q: %w", docName, err)
	}
	doc, err := graph.Parse(stored.Body)
	if err != nil {
		return fmt.Errorf("parsing document %q: %w", docName, err)
	}

	series, err := repos.Bars.GetRange(ctx, symbol, cfg.DataSync.Timeframe, from, to)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}
	if len(series) == 0 {
		return fmt.Errorf("no bars stored for %s %s in %s..%s",
			symbol, cfg.DataSync.Timeframe, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	btConfig := backtest.BacktestConfig{
		InitialBalance:   cfg.Backtest.InitialBalance,
		Symbol:           symbol,
		SpreadPoints:     cfg.Backtest.SpreadPoints,
		CommissionPerLot: cfg.Backtest.CommissionPerLot,
		Digits:           cfg.Backtest.Digits,
		PointValue:       cfg.Backtest.PointValue,
	}

	runID := uuid.New()
	configJSON, _ := json.Marshal(btConfig)
	record := &models.BacktestRun{
		ID:         runID,
		DocumentID: stored.ID,
		Symbol:     symbol,
		Timeframe:  cfg.DataSync.Timeframe,
		State:      models.RunStateQueued,
		Config:     configJSON,
	}
	if err := repos.Runs.Create(ctx, record); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	host := worker.NewHost(cfg.Worker, log)
	host.Start(ctx)
	defer host.Stop()

	req := worker.RunRequest{
		RunID:    runID,
		Config:   btConfig,
		Document: doc,
		Bars:     series,
	}
	if monteCarlo {
		req.MonteCarlo = &backtest.MonteCarloConfig{
			Iterations:    cfg.MonteCarlo.Iterations,
			Seed:          cfg.MonteCarlo.Seed,
			RuinThreshold: cfg.MonteCarlo.RuinThreshold,
		}
	}
	if err := host.Submit(req); err != nil {
		return err
	}
	if err := repos.Runs.UpdateState(ctx, runID, models.RunStateRunning, nil); err != nil {
		log.WithError(err).Warn("Failed to mark run as running")
	}

	for {
		select {
		case <-ctx.Done():
			host.Cancel(runID)
		case update := <-host.Progress():
			log.WithFields(logrus.Fields{
				"processed": update.Processed,
				"total":     update.Total,
			}).Debug("Replay progress")
		case outcome := <-host.Results():
			if outcome.RunID != runID {
				continue
			}
			return persistOutcome(repos, log, record, outcome, monteCarlo)
		}
	}
}

func persistOutcome(
	repos *repository.Repositories,
	log *logrus.Logger,
	record *models.BacktestRun,
	outcome worker.RunOutcome,
	monteCarlo bool,
) error {
	// persistence must survive caller cancellation
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch outcome.Status {
	case worker.RunStatusCompleted:
		statsJSON, err := json.Marshal(outcome.Result.Statistics)
		if err != nil {
			return fmt.Errorf("encoding statistics: %w", err)
		}
		record.Statistics = statsJSON
		record.FinalBalance = outcome.Result.FinalBalance
		record.TotalTrades = len(outcome.Result.Trades)
		if err := repos.Runs.SaveResult(ctx, record); err != nil {
			return fmt.Errorf("saving result: %w", err)
		}

		fmt.Print(backtest.GenerateConsoleReport(outcome.Result))
		if monteCarlo && outcome.MonteCarlo != nil {
			fmt.Print(backtest.GenerateMonteCarloReport(outcome.MonteCarlo))
		}
		return nil

	case worker.RunStatusCancelled:
		if err := repos.Runs.UpdateState(ctx, record.ID, models.RunStateCancelled, nil); err != nil {
			log.WithError(err).Warn("Failed to mark run as cancelled")
		}
		return fmt.Errorf("run cancelled")

	default:
		msg := outcome.Err.Error()
		if err := repos.Runs.UpdateState(ctx, record.ID, models.RunStateFailed, &msg); err != nil {
			log.WithError(err).Warn("Failed to mark run as failed")
		}
		return outcome.Err
	}
}
