package indicators

import (
	"math"

	"github.com/yourusername/graphtrader/internal/models"
)

// RSI computes Wilder's relative strength index over the given price
// series. The first average gain/loss is a simple mean of the first period
// changes, so warmup is period bars. Output is bounded to [0, 100].
func RSI(values []float64, period int) Buffer {
	out := NewBuffer(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// StochasticResult holds the %K and %D lines
type StochasticResult struct {
	K Buffer
	D Buffer
}

// Stochastic computes the stochastic oscillator: raw %K over kPeriod
// highs/lows, smoothed by `slowing` (SMA), with %D an SMA of %K over
// dPeriod. A flat high/low range resolves to 50 rather than dividing by
// zero.
func Stochastic(bars []models.Bar, kPeriod, dPeriod, slowing int) StochasticResult {
	n := len(bars)
	res := StochasticResult{K: NewBuffer(n), D: NewBuffer(n)}
	if kPeriod <= 0 || dPeriod <= 0 || slowing <= 0 || n < kPeriod+slowing+dPeriod-2 {
		return res
	}
	highs := Highs(bars)
	lows := Lows(bars)
	raw := NewBuffer(n)
	for i := kPeriod - 1; i < n; i++ {
		hh := highest(highs, i, kPeriod)
		ll := lowest(lows, i, kPeriod)
		if hh == ll {
			raw[i] = 50
			continue
		}
		raw[i] = 100 * (bars[i].Close - ll) / (hh - ll)
	}
	for i := kPeriod + slowing - 2; i < n; i++ {
		sum := 0.0
		for j := 0; j < slowing; j++ {
			sum += raw[i-j]
		}
		res.K[i] = sum / float64(slowing)
	}
	first := kPeriod + slowing + dPeriod - 3
	for i := first; i < n; i++ {
		sum := 0.0
		for j := 0; j < dPeriod; j++ {
			sum += res.K[i-j]
		}
		res.D[i] = sum / float64(dPeriod)
	}
	return res
}

// CCI computes the commodity channel index over the typical price with the
// conventional 0.015 scaling constant. Warmup is period-1 bars.
func CCI(bars []models.Bar, period int) Buffer {
	out := NewBuffer(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	tp := Apply(bars, PriceTypical)
	sma := SMA(tp, period)
	for i := period - 1; i < len(bars); i++ {
		meanDev := 0.0
		for j := i - period + 1; j <= i; j++ {
			meanDev += math.Abs(tp[j] - sma[i])
		}
		meanDev /= float64(period)
		if meanDev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - sma[i]) / (0.015 * meanDev)
	}
	return out
}

// OBV computes on-balance volume, seeded with the first bar's volume. No
// warmup: every index holds a value.
func OBV(bars []models.Bar) Buffer {
	out := NewBuffer(len(bars))
	if len(bars) == 0 {
		return out
	}
	out[0] = bars[0].Volume
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] = out[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] = out[i-1] - bars[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}
