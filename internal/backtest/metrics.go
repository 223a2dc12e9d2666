package backtest

import (
	"math"

	"github.com/yourusername/graphtrader/internal/models"
)

// Statistics summarizes a finished run
type Statistics struct {
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"`
	NetProfit       float64 `json:"net_profit"`
	ProfitFactor    float64 `json:"profit_factor"` // +Inf with wins and no losses
	ExpectedPayoff  float64 `json:"expected_payoff"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	RecoveryFactor  float64 `json:"recovery_factor"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	LargestWin      float64 `json:"largest_win"`
	LargestLoss     float64 `json:"largest_loss"`
	MaxConsecWins   int     `json:"max_consecutive_wins"`
	MaxConsecLosses int     `json:"max_consecutive_losses"`
	TotalCommission float64 `json:"total_commission"`
}

// ComputeStatistics derives the run summary from the closed trades and the
// per-bar equity curve
func ComputeStatistics(initialBalance float64, trades []models.Trade, curve EquityCurve) Statistics {
	s := Statistics{TotalTrades: len(trades)}

	consecWins, consecLosses := 0, 0
	for _, t := range trades {
		s.NetProfit += t.Profit
		s.TotalCommission += t.Commission
		if t.Profit > 0 {
			s.WinningTrades++
			s.GrossProfit += t.Profit
			if t.Profit > s.LargestWin {
				s.LargestWin = t.Profit
			}
			consecWins++
			consecLosses = 0
		} else {
			s.LosingTrades++
			s.GrossLoss += -t.Profit
			if t.Profit < s.LargestLoss {
				s.LargestLoss = t.Profit
			}
			consecLosses++
			consecWins = 0
		}
		if consecWins > s.MaxConsecWins {
			s.MaxConsecWins = consecWins
		}
		if consecLosses > s.MaxConsecLosses {
			s.MaxConsecLosses = consecLosses
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
		s.ExpectedPayoff = s.NetProfit / float64(s.TotalTrades)
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}

	peak := initialBalance
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
			if peak > 0 {
				s.MaxDrawdownPct = dd / peak
			}
		}
	}
	if s.MaxDrawdown > 0 {
		s.RecoveryFactor = s.NetProfit / s.MaxDrawdown
	}
	s.SharpeRatio = sharpeRatio(curve.GetReturns())
	return s
}

// sharpeRatio annualizes the per-bar return series assuming 252 trading
// periods, zero risk-free rate
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(252)
}
