package backtest

import (
	"math"
	"reflect"
	"testing"

	"github.com/yourusername/graphtrader/internal/models"
)

func tradesWithProfits(profits []float64) []models.Trade {
	trades := make([]models.Trade, len(profits))
	for i, p := range profits {
		trades[i] = models.Trade{Profit: p}
	}
	return trades
}

// enumerateRuinProbability brute-forces the exact ruin probability over all
// orderings of the profit sequence
func enumerateRuinProbability(profits []float64, initial, threshold float64) float64 {
	ruined, total := 0, 0
	perm := make([]int, len(profits))
	for i := range perm {
		perm[i] = i
	}
	var walk func(k int)
	walk = func(k int) {
		if k == len(perm) {
			total++
			balance, peak := initial, initial
			for _, idx := range perm {
				balance += profits[idx]
				if balance > peak {
					peak = balance
				}
				if peak > 0 && (peak-balance)/peak >= threshold {
					ruined++
					return
				}
			}
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)
	return float64(ruined) / float64(total)
}

func TestRuinProbabilityMatchesEnumeration(t *testing.T) {
	profits := []float64{100, -50, 100, -50}
	exact := enumerateRuinProbability(profits, 100, 0.5)
	if math.Abs(exact-2.0/3.0) > 1e-12 {
		t.Fatalf("enumeration sanity check failed: %v", exact)
	}

	result, err := RunMonteCarlo(MonteCarloConfig{Iterations: 5000, Seed: 42, RuinThreshold: 0.5}, 100, tradesWithProfits(profits))
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if math.Abs(result.ProbabilityOfRuin-exact) > 0.03 {
		t.Fatalf("estimate %v too far from exact %v", result.ProbabilityOfRuin, exact)
	}
}

func TestFinalBalanceIsPermutationInvariant(t *testing.T) {
	profits := []float64{30, -10, 55, -25, 5}
	sum := 0.0
	for _, p := range profits {
		sum += p
	}
	expected := 1000 + sum

	result, err := RunMonteCarlo(MonteCarloConfig{Iterations: 200, Seed: 7, RuinThreshold: 0.9}, 1000, tradesWithProfits(profits))
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	band := result.FinalBalance
	for _, v := range []float64{band.P5, band.P50, band.P95, band.P99} {
		if math.Abs(v-expected) > 1e-9 {
			t.Fatalf("reordering must not change the final balance: got %v want %v", v, expected)
		}
	}
}

func TestRuinProbabilityMonotoneInThreshold(t *testing.T) {
	trades := tradesWithProfits([]float64{100, -80, 60, -90, 40, -30, 70, -50})

	// a fixed seed replays the same permutations at every threshold, so
	// lowering the bar for ruin can only flag more of them
	prev := -1.0
	for _, threshold := range []float64{0.9, 0.7, 0.5, 0.3, 0.1} {
		result, err := RunMonteCarlo(MonteCarloConfig{Iterations: 2000, Seed: 42, RuinThreshold: threshold}, 200, trades)
		if err != nil {
			t.Fatalf("monte carlo failed at threshold %v: %v", threshold, err)
		}
		if result.ProbabilityOfRuin < prev {
			t.Fatalf("ruin probability fell from %v to %v when threshold dropped to %v",
				prev, result.ProbabilityOfRuin, threshold)
		}
		prev = result.ProbabilityOfRuin
	}
	if prev <= 0 {
		t.Fatal("expected some ruin at the lowest threshold")
	}
}

func TestSameSeedSameResult(t *testing.T) {
	trades := tradesWithProfits([]float64{100, -40, 60, -80, 20, 35})
	cfg := MonteCarloConfig{Iterations: 500, Seed: 99, RuinThreshold: 0.3}

	first, err := RunMonteCarlo(cfg, 500, trades)
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	second, err := RunMonteCarlo(cfg, 500, trades)
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed must reproduce the same result")
	}
}

func TestZeroSeedPicksOne(t *testing.T) {
	result, err := RunMonteCarlo(MonteCarloConfig{Iterations: 10, RuinThreshold: 0.5}, 100, tradesWithProfits([]float64{10, -5}))
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if result.Seed == 0 {
		t.Fatal("expected a generated seed to be reported")
	}
}

func TestSampleCurvesAreBounded(t *testing.T) {
	profits := []float64{10, -5, 20, -10}
	result, err := RunMonteCarlo(MonteCarloConfig{Iterations: 500, Seed: 1, RuinThreshold: 0.9}, 100, tradesWithProfits(profits))
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if len(result.SampleCurves) == 0 || len(result.SampleCurves) > maxSampleCurves {
		t.Fatalf("expected between 1 and %d curves, got %d", maxSampleCurves, len(result.SampleCurves))
	}
	for _, curve := range result.SampleCurves {
		if len(curve) != len(profits)+1 {
			t.Fatalf("curve must include the starting balance, got %d points", len(curve))
		}
		if curve[0] != 100 {
			t.Fatalf("curve must start at the initial balance, got %v", curve[0])
		}
	}
}

func TestMonteCarloConfigValidation(t *testing.T) {
	trades := tradesWithProfits([]float64{10})
	if _, err := RunMonteCarlo(MonteCarloConfig{Iterations: 0, RuinThreshold: 0.5}, 100, trades); err == nil {
		t.Fatal("expected iterations error")
	}
	if _, err := RunMonteCarlo(MonteCarloConfig{Iterations: 10, RuinThreshold: 0}, 100, trades); err == nil {
		t.Fatal("expected threshold error")
	}
	if _, err := RunMonteCarlo(MonteCarloConfig{Iterations: 10, RuinThreshold: 1.5}, 100, trades); err == nil {
		t.Fatal("expected threshold range error")
	}
	if _, err := RunMonteCarlo(MonteCarloConfig{Iterations: 10, RuinThreshold: 0.5}, 100, nil); err == nil {
		t.Fatal("expected empty trades error")
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	if got := percentile(sorted, 0.5); got != 3 {
		t.Fatalf("median of 1..5 should be 3, got %v", got)
	}
	if got := percentile(sorted, 0); got != 1 {
		t.Fatalf("p0 should be the minimum, got %v", got)
	}
	if got := percentile(sorted, 1); got != 5 {
		t.Fatalf("p100 should be the maximum, got %v", got)
	}
	if got := percentile([]float64{10, 20}, 0.05); math.Abs(got-10.5) > 1e-12 {
		t.Fatalf("expected interpolated 10.5, got %v", got)
	}
	if got := percentile([]float64{42}, 0.99); got != 42 {
		t.Fatalf("single sample should be returned as-is, got %v", got)
	}
}
