package indicators

import (
	"math"

	"github.com/yourusername/graphtrader/internal/models"
)

// TrueRange computes the per-bar true range. The first bar falls back to
// high-low since there is no prior close.
func TrueRange(bars []models.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return tr
}

// ATR computes the average true range: an SMA seed over the first period
// true ranges, then Wilder smoothing. Warmup is period-1 bars.
func ATR(bars []models.Bar, period int) Buffer {
	if period <= 0 || len(bars) < period {
		return NewBuffer(len(bars))
	}
	return SMMA(TrueRange(bars), period)
}

// BollingerResult holds the three Bollinger band lines
type BollingerResult struct {
	Upper  Buffer
	Middle Buffer
	Lower  Buffer
}

// Bollinger computes Bollinger Bands: an SMA middle line with bands at
// deviation multiples of the population standard deviation over the same
// window. Warmup is period-1 bars.
func Bollinger(values []float64, period int, deviation float64) BollingerResult {
	n := len(values)
	res := BollingerResult{Upper: NewBuffer(n), Middle: SMA(values, period), Lower: NewBuffer(n)}
	if period <= 0 || n < period {
		return res
	}
	for i := period - 1; i < n; i++ {
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - res.Middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		res.Upper[i] = res.Middle[i] + deviation*sd
		res.Lower[i] = res.Middle[i] - deviation*sd
	}
	return res
}

// KeltnerResult holds the Keltner channel lines
type KeltnerResult struct {
	Upper  Buffer
	Middle Buffer
	Lower  Buffer
}

// Keltner computes a Keltner channel: EMA middle line with ATR-multiple
// bands. Warmup is period-1 bars from both the EMA and the ATR.
func Keltner(bars []models.Bar, period int, multiplier float64) KeltnerResult {
	n := len(bars)
	res := KeltnerResult{
		Upper:  NewBuffer(n),
		Middle: EMA(Apply(bars, PriceTypical), period),
		Lower:  NewBuffer(n),
	}
	atr := ATR(bars, period)
	for i := 0; i < n; i++ {
		if !res.Middle.Valid(i) || !atr.Valid(i) {
			continue
		}
		res.Upper[i] = res.Middle[i] + multiplier*atr[i]
		res.Lower[i] = res.Middle[i] - multiplier*atr[i]
	}
	return res
}

// Squeeze computes the volatility squeeze: 1 when the Bollinger bands sit
// fully inside the Keltner channel, 0 otherwise, NaN while either input is
// warming up.
func Squeeze(bars []models.Bar, period int, bbDeviation, kcMultiplier float64) Buffer {
	out := NewBuffer(len(bars))
	bb := Bollinger(Closes(bars), period, bbDeviation)
	kc := Keltner(bars, period, kcMultiplier)
	for i := range out {
		if !bb.Upper.Valid(i) || !kc.Upper.Valid(i) {
			continue
		}
		if bb.Upper[i] < kc.Upper[i] && bb.Lower[i] > kc.Lower[i] {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}
