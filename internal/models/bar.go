package models

import (
	"fmt"
	"math"
	"time"
)

// Bar represents one OHLCV interval of market data
type Bar struct {
	Time   time.Time `db:"time" json:"time" validate:"required"`
	Open   float64   `db:"open" json:"open"`
	High   float64   `db:"high" json:"high"`
	Low    float64   `db:"low" json:"low"`
	Close  float64   `db:"close" json:"close"`
	Volume float64   `db:"volume" json:"volume"`
}

// Validate checks a single bar for internal consistency
func (b Bar) Validate() error {
	for name, v := range map[string]float64{
		"open": b.Open, "high": b.High, "low": b.Low, "close": b.Close, "volume": b.Volume,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bar at %s: %s is not finite", b.Time.Format(time.RFC3339), name)
		}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar at %s: prices must be positive", b.Time.Format(time.RFC3339))
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar at %s: volume cannot be negative", b.Time.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return fmt.Errorf("bar at %s: high %.8f below low %.8f", b.Time.Format(time.RFC3339), b.High, b.Low)
	}
	if b.Open > b.High || b.Open < b.Low {
		return fmt.Errorf("bar at %s: open %.8f outside high/low range", b.Time.Format(time.RFC3339), b.Open)
	}
	if b.Close > b.High || b.Close < b.Low {
		return fmt.Errorf("bar at %s: close %.8f outside high/low range", b.Time.Format(time.RFC3339), b.Close)
	}
	return nil
}

// MedianPrice returns (high+low)/2
func (b Bar) MedianPrice() float64 {
	return (b.High + b.Low) / 2
}

// TypicalPrice returns (high+low+close)/3
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// WeightedPrice returns (high+low+2*close)/4
func (b Bar) WeightedPrice() float64 {
	return (b.High + b.Low + 2*b.Close) / 4
}
