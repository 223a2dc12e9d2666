package backtest

import (
	"fmt"
	"math"
)

// BacktestConfig carries the per-run simulation parameters
type BacktestConfig struct {
	InitialBalance   float64 `json:"initial_balance"`
	Symbol           string  `json:"symbol"`
	SpreadPoints     float64 `json:"spread_points"`
	CommissionPerLot float64 `json:"commission_per_lot"` // per side
	Digits           int     `json:"digits"`
	PointValue       float64 `json:"point_value"` // cash per point per lot
}

// Validate checks config invariants before a run starts
func (c BacktestConfig) Validate() error {
	for name, v := range map[string]float64{
		"initial_balance":    c.InitialBalance,
		"spread_points":      c.SpreadPoints,
		"commission_per_lot": c.CommissionPerLot,
		"point_value":        c.PointValue,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.SpreadPoints < 0 {
		return fmt.Errorf("spread cannot be negative")
	}
	if c.CommissionPerLot < 0 {
		return fmt.Errorf("commission cannot be negative")
	}
	if c.Digits < 0 || c.Digits > 8 {
		return fmt.Errorf("digits must be between 0 and 8")
	}
	if c.PointValue <= 0 {
		return fmt.Errorf("point value must be positive")
	}
	return nil
}

// Point returns the price increment of one point for the configured digits
func (c BacktestConfig) Point() float64 {
	return math.Pow(10, -float64(c.Digits))
}
