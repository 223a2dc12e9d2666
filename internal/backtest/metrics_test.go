package backtest

import (
	"math"
	"testing"
	"time"
)

func TestComputeStatisticsKnownTrades(t *testing.T) {
	trades := tradesWithProfits([]float64{100, -50, 25})
	s := ComputeStatistics(1000, trades, nil)

	if s.TotalTrades != 3 || s.WinningTrades != 2 || s.LosingTrades != 1 {
		t.Fatalf("unexpected trade counts: %+v", s)
	}
	if math.Abs(s.WinRate-2.0/3.0) > 1e-12 {
		t.Fatalf("expected win rate 2/3, got %v", s.WinRate)
	}
	if s.GrossProfit != 125 || s.GrossLoss != 50 || s.NetProfit != 75 {
		t.Fatalf("unexpected gross figures: %+v", s)
	}
	if s.ProfitFactor != 2.5 {
		t.Fatalf("expected profit factor 2.5, got %v", s.ProfitFactor)
	}
	if s.ExpectedPayoff != 25 {
		t.Fatalf("expected payoff 25, got %v", s.ExpectedPayoff)
	}
	if s.LargestWin != 100 || s.LargestLoss != -50 {
		t.Fatalf("unexpected extremes: %+v", s)
	}
	if s.MaxConsecWins != 1 || s.MaxConsecLosses != 1 {
		t.Fatalf("unexpected streaks: %+v", s)
	}
}

func TestProfitFactorInfiniteWithoutLosses(t *testing.T) {
	s := ComputeStatistics(1000, tradesWithProfits([]float64{10, 20}), nil)
	if !math.IsInf(s.ProfitFactor, 1) {
		t.Fatalf("expected +Inf profit factor, got %v", s.ProfitFactor)
	}
}

func TestStatisticsEmptyRun(t *testing.T) {
	s := ComputeStatistics(1000, nil, nil)
	if s.TotalTrades != 0 || s.WinRate != 0 || s.ProfitFactor != 0 || s.ExpectedPayoff != 0 {
		t.Fatalf("expected zeroed statistics, got %+v", s)
	}
}

func TestConsecutiveStreaks(t *testing.T) {
	s := ComputeStatistics(1000, tradesWithProfits([]float64{10, 10, 10, -5, -5, 10}), nil)
	if s.MaxConsecWins != 3 {
		t.Fatalf("expected 3 consecutive wins, got %d", s.MaxConsecWins)
	}
	if s.MaxConsecLosses != 2 {
		t.Fatalf("expected 2 consecutive losses, got %d", s.MaxConsecLosses)
	}
}

func TestDrawdownFromCurve(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	curve := EquityCurve{
		{BarIndex: 0, Time: start, Equity: 100, Balance: 100},
		{BarIndex: 1, Time: start.Add(time.Hour), Equity: 120, Balance: 120},
		{BarIndex: 2, Time: start.Add(2 * time.Hour), Equity: 90, Balance: 90},
		{BarIndex: 3, Time: start.Add(3 * time.Hour), Equity: 110, Balance: 110},
	}
	s := ComputeStatistics(100, tradesWithProfits([]float64{10}), curve)
	if s.MaxDrawdown != 30 {
		t.Fatalf("expected drawdown 30, got %v", s.MaxDrawdown)
	}
	if math.Abs(s.MaxDrawdownPct-0.25) > 1e-12 {
		t.Fatalf("expected 25%% drawdown, got %v", s.MaxDrawdownPct)
	}
	if math.Abs(s.RecoveryFactor-10.0/30.0) > 1e-12 {
		t.Fatalf("unexpected recovery factor %v", s.RecoveryFactor)
	}
}

func TestSharpeZeroForConstantReturns(t *testing.T) {
	if got := sharpeRatio([]float64{0.01, 0.01, 0.01}); got != 0 {
		t.Fatalf("constant returns have no variance, got %v", got)
	}
	if got := sharpeRatio(nil); got != 0 {
		t.Fatalf("empty series should be 0, got %v", got)
	}
}

func TestEquityCurveReturns(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	curve := EquityCurve{
		{BarIndex: 0, Time: start, Equity: 100},
		{BarIndex: 1, Time: start.Add(time.Hour), Equity: 110},
		{BarIndex: 2, Time: start.Add(2 * time.Hour), Equity: 99},
	}
	returns := curve.GetReturns()
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-0.1) > 1e-12 || math.Abs(returns[1]+0.1) > 1e-12 {
		t.Fatalf("unexpected returns: %v", returns)
	}
}

func TestEquityCurveCSV(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	curve := EquityCurve{{BarIndex: 0, Time: start, Balance: 100, Equity: 100}}
	csv := curve.ToCSV()
	want := "bar_index,time,balance,equity,drawdown\n0,2024-03-01T00:00:00Z,100.000000,100.000000,0.000000\n"
	if csv != want {
		t.Fatalf("unexpected CSV:\n%s", csv)
	}
}
