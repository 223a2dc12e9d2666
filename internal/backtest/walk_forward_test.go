package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/graphtrader/internal/graph"
)

func TestWalkForwardWindowLayout(t *testing.T) {
	quads := make([]ohlc, 20)
	for i := range quads {
		quads[i] = flat(100)
	}
	bars := barsFrom(quads, testStart, time.Hour)
	doc := breakoutGraph(`{"mode":"fixed_lot","lots":1}`, "", graph.Settings{MaxOpenTrades: 1})

	result, err := RunWalkForward(context.Background(),
		WalkForwardConfig{InSampleBars: 6, OutOfSampleBars: 6}, unitConfig(), doc, bars)
	if err != nil {
		t.Fatalf("walk forward failed: %v", err)
	}
	if len(result.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(result.Windows))
	}
	first := result.Windows[0]
	if first.TrainStart != 0 || first.TrainEnd != 6 || first.TestStart != 6 || first.TestEnd != 12 {
		t.Fatalf("unexpected first window: %+v", first)
	}
	second := result.Windows[1]
	if second.TrainStart != 6 || second.TestEnd != 18 {
		t.Fatalf("unexpected second window: %+v", second)
	}
}

func TestWalkForwardSkipsThinWindows(t *testing.T) {
	quads := make([]ohlc, 20)
	for i := range quads {
		quads[i] = flat(100) // no breakouts, no trades
	}
	bars := barsFrom(quads, testStart, time.Hour)
	doc := breakoutGraph(`{"mode":"fixed_lot","lots":1}`, "", graph.Settings{MaxOpenTrades: 1})

	result, err := RunWalkForward(context.Background(),
		WalkForwardConfig{InSampleBars: 6, OutOfSampleBars: 6, MinTrades: 1}, unitConfig(), doc, bars)
	if err != nil {
		t.Fatalf("walk forward failed: %v", err)
	}
	if len(result.Windows) != 0 {
		t.Fatalf("tradeless windows must be skipped, got %d", len(result.Windows))
	}
}

func TestWalkForwardConfigValidation(t *testing.T) {
	if err := (WalkForwardConfig{InSampleBars: 0, OutOfSampleBars: 5}).Validate(); err == nil {
		t.Fatal("expected window size error")
	}
	if err := (WalkForwardConfig{InSampleBars: 5, OutOfSampleBars: 5, StepBars: -1}).Validate(); err == nil {
		t.Fatal("expected step error")
	}
}
