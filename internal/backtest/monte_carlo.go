package backtest

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/yourusername/graphtrader/internal/models"
)

// maxSampleCurves bounds how many resampled equity paths a result retains
const maxSampleCurves = 50

// MonteCarloConfig drives the permutation resampling of a finished run
type MonteCarloConfig struct {
	Iterations    int     `json:"iterations"`
	Seed          int64   `json:"seed"` // 0 picks a time-based seed
	RuinThreshold float64 `json:"ruin_threshold"`
}

// Validate checks the resampling parameters
func (c MonteCarloConfig) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}
	if c.RuinThreshold <= 0 || c.RuinThreshold > 1 {
		return fmt.Errorf("ruin threshold must be in (0, 1]")
	}
	return nil
}

// PercentileBand holds the interpolated order statistics of one metric
type PercentileBand struct {
	P5  float64 `json:"p5"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// MonteCarloResult summarizes the resampled distribution
type MonteCarloResult struct {
	Iterations        int            `json:"iterations"`
	Seed              int64          `json:"seed"`
	FinalBalance      PercentileBand `json:"final_balance"`
	MaxDrawdown       PercentileBand `json:"max_drawdown"`
	ProbabilityOfRuin float64        `json:"probability_of_ruin"`
	SampleCurves      [][]float64    `json:"sample_curves,omitempty"`
}

// RunMonteCarlo permutes the order of the run's trade results and replays
// the balance path for each permutation. Trade sizes are kept as realized;
// only their order changes. The same seed always yields the same result.
func RunMonteCarlo(cfg MonteCarloConfig, initialBalance float64, trades []models.Trade) (*MonteCarloResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monte carlo config: %w", err)
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("no trades to resample")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	profits := make([]float64, len(trades))
	for i, t := range trades {
		profits[i] = t.Profit
	}

	finals := make([]float64, cfg.Iterations)
	drawdowns := make([]float64, cfg.Iterations)
	ruined := 0

	curveStride := 1
	if cfg.Iterations > maxSampleCurves {
		curveStride = cfg.Iterations / maxSampleCurves
	}
	var curves [][]float64

	for it := 0; it < cfg.Iterations; it++ {
		perm := rng.Perm(len(profits))

		balance := initialBalance
		peak := initialBalance
		maxDD := 0.0
		isRuined := false
		var curve []float64
		keepCurve := it%curveStride == 0 && len(curves) < maxSampleCurves
		if keepCurve {
			curve = make([]float64, 0, len(profits)+1)
			curve = append(curve, balance)
		}

		for _, idx := range perm {
			balance += profits[idx]
			if balance > peak {
				peak = balance
			}
			dd := peak - balance
			if dd > maxDD {
				maxDD = dd
			}
			if peak > 0 && dd/peak >= cfg.RuinThreshold {
				isRuined = true
			}
			if keepCurve {
				curve = append(curve, balance)
			}
		}

		finals[it] = balance
		drawdowns[it] = maxDD
		if isRuined {
			ruined++
		}
		if keepCurve {
			curves = append(curves, curve)
		}
	}

	return &MonteCarloResult{
		Iterations:        cfg.Iterations,
		Seed:              seed,
		FinalBalance:      percentileBand(finals),
		MaxDrawdown:       percentileBand(drawdowns),
		ProbabilityOfRuin: float64(ruined) / float64(cfg.Iterations),
		SampleCurves:      curves,
	}, nil
}

func percentileBand(values []float64) PercentileBand {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return PercentileBand{
		P5:  percentile(sorted, 0.05),
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

// percentile linearly interpolates between adjacent order statistics
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
