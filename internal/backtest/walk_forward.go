package backtest

import (
	"context"
	"fmt"

	"github.com/yourusername/graphtrader/internal/graph"
	"github.com/yourusername/graphtrader/internal/models"
)

// WalkForwardConfig splits the bar series into rolling in-sample and
// out-of-sample windows
type WalkForwardConfig struct {
	InSampleBars    int `json:"in_sample_bars"`
	OutOfSampleBars int `json:"out_of_sample_bars"`
	StepBars        int `json:"step_bars"` // defaults to the out-of-sample size
	MinTrades       int `json:"min_trades"`
}

// Validate checks the windowing parameters
func (c WalkForwardConfig) Validate() error {
	if c.InSampleBars <= 0 || c.OutOfSampleBars <= 0 {
		return fmt.Errorf("window sizes must be positive")
	}
	if c.StepBars < 0 || c.MinTrades < 0 {
		return fmt.Errorf("step and trade threshold cannot be negative")
	}
	return nil
}

// WalkForwardWindow is one rolling split with its two sub-run summaries
type WalkForwardWindow struct {
	WindowID   int        `json:"window_id"`
	TrainStart int        `json:"train_start"`
	TrainEnd   int        `json:"train_end"`
	TestStart  int        `json:"test_start"`
	TestEnd    int        `json:"test_end"`
	TrainStats Statistics `json:"train_stats"`
	TestStats  Statistics `json:"test_stats"`
}

// WalkForwardResult aggregates the rolling windows
type WalkForwardResult struct {
	Windows          []WalkForwardWindow `json:"windows"`
	ConsistencyScore float64             `json:"consistency_score"`
	OverfitScore     float64             `json:"overfit_score"`
}

// RunWalkForward replays the graph over rolling bar windows, backtesting
// the in-sample and out-of-sample slices independently. Windows where
// either slice produces fewer than MinTrades trades are skipped.
func RunWalkForward(ctx context.Context, cfg WalkForwardConfig, btCfg BacktestConfig, doc *graph.Document, bars []models.Bar) (*WalkForwardResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid walk-forward config: %w", err)
	}
	step := cfg.StepBars
	if step == 0 {
		step = cfg.OutOfSampleBars
	}

	var windows []WalkForwardWindow
	windowID := 0
	for start := 0; start+cfg.InSampleBars+cfg.OutOfSampleBars <= len(bars); start += step {
		trainEnd := start + cfg.InSampleBars
		testEnd := trainEnd + cfg.OutOfSampleBars
		windowID++

		trainResult, err := runSlice(ctx, btCfg, doc, bars[start:trainEnd])
		if err != nil {
			return nil, fmt.Errorf("window %d train: %w", windowID, err)
		}
		testResult, err := runSlice(ctx, btCfg, doc, bars[trainEnd:testEnd])
		if err != nil {
			return nil, fmt.Errorf("window %d test: %w", windowID, err)
		}
		if cfg.MinTrades > 0 &&
			(trainResult.Statistics.TotalTrades < cfg.MinTrades || testResult.Statistics.TotalTrades < cfg.MinTrades) {
			continue
		}

		windows = append(windows, WalkForwardWindow{
			WindowID:   windowID,
			TrainStart: start,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
			TrainStats: trainResult.Statistics,
			TestStats:  testResult.Statistics,
		})
	}

	return &WalkForwardResult{
		Windows:          windows,
		ConsistencyScore: consistencyScore(windows),
		OverfitScore:     overfitScore(windows),
	}, nil
}

func runSlice(ctx context.Context, cfg BacktestConfig, doc *graph.Document, bars []models.Bar) (*BacktestResult, error) {
	engine, err := NewEngine(cfg, doc, bars)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx)
}

// consistencyScore is the fraction of out-of-sample windows that finished
// profitable
func consistencyScore(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	profitable := 0
	for _, w := range windows {
		if w.TestStats.NetProfit > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(windows))
}

// overfitScore compares in-sample to out-of-sample profit; higher means the
// strategy degrades more out of sample
func overfitScore(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	train, test := 0.0, 0.0
	for _, w := range windows {
		train += w.TrainStats.NetProfit
		test += w.TestStats.NetProfit
	}
	if train == 0 {
		return 0
	}
	return (train - test) / train
}
