package backtest

import (
	"time"

	"github.com/yourusername/graphtrader/internal/models"
)

// BacktestState tracks the evolving account through the bar loop
type BacktestState struct {
	Balance     float64
	Equity      float64
	PeakEquity  float64
	MaxDrawdown float64

	OpenPositions []*models.Position
	Trades        []models.Trade
	Curve         EquityCurve
	Warnings      []string

	// daily counters, reset when the bar date changes
	dailyDate    string
	dailyProfit  float64
	dailyEntries int
}

// NewBacktestState initialises the account at the starting balance
func NewBacktestState(initialBalance float64) *BacktestState {
	return &BacktestState{
		Balance:    initialBalance,
		Equity:     initialBalance,
		PeakEquity: initialBalance,
	}
}

// RollDay resets the daily counters when t crosses a date boundary
func (s *BacktestState) RollDay(t time.Time) {
	day := t.UTC().Format("2006-01-02")
	if day != s.dailyDate {
		s.dailyDate = day
		s.dailyProfit = 0
		s.dailyEntries = 0
	}
}

// RecordDailyProfit folds a realized result into the current day's total
func (s *BacktestState) RecordDailyProfit(profit float64) {
	s.dailyProfit += profit
}

// RecordEntry counts one entry against the current day's quota
func (s *BacktestState) RecordEntry() {
	s.dailyEntries++
}

// DailyProfit returns the realized profit of the current day
func (s *BacktestState) DailyProfit() float64 {
	return s.dailyProfit
}

// DailyEntries returns the number of entries taken today
func (s *BacktestState) DailyEntries() int {
	return s.dailyEntries
}

// CountOpen returns the number of open positions, total and per direction
func (s *BacktestState) CountOpen() (total, long, short int) {
	for _, p := range s.OpenPositions {
		total++
		if p.Direction == models.TradeDirectionLong {
			long++
		} else {
			short++
		}
	}
	return total, long, short
}

// RemovePosition drops a closed position from the open set
func (s *BacktestState) RemovePosition(pos *models.Position) {
	for i, p := range s.OpenPositions {
		if p == pos {
			s.OpenPositions = append(s.OpenPositions[:i], s.OpenPositions[i+1:]...)
			return
		}
	}
}

// MarkToMarket recomputes equity from the balance plus unrealized PnL and
// appends the bar's equity point
func (s *BacktestState) MarkToMarket(barIndex int, t time.Time, unrealized float64) {
	s.Equity = s.Balance + unrealized
	if s.Equity > s.PeakEquity {
		s.PeakEquity = s.Equity
	}
	dd := s.PeakEquity - s.Equity
	if dd > s.MaxDrawdown {
		s.MaxDrawdown = dd
	}
	s.Curve = append(s.Curve, EquityPoint{
		BarIndex: barIndex,
		Time:     t,
		Balance:  s.Balance,
		Equity:   s.Equity,
		Drawdown: dd,
	})
}
