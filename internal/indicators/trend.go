package indicators

import (
	"math"

	"github.com/yourusername/graphtrader/internal/models"
)

// MACDResult holds the MACD, signal and histogram lines
type MACDResult struct {
	MACD      Buffer
	Signal    Buffer
	Histogram Buffer
}

// MACD computes the moving average convergence/divergence: fast EMA minus
// slow EMA, with an EMA signal line seeded by an SMA over the first valid
// MACD values. Warmup is slow+signal-2 bars for the signal line.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	n := len(values)
	res := MACDResult{MACD: NewBuffer(n), Signal: NewBuffer(n), Histogram: NewBuffer(n)}
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow+signal-1 {
		return res
	}
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := slow - 1; i < n; i++ {
		res.MACD[i] = fastEMA[i] - slowEMA[i]
	}

	// signal: SMA seed over the first signal-many MACD values, then EMA
	first := slow - 1
	seedEnd := first + signal - 1
	seed := 0.0
	for i := first; i <= seedEnd; i++ {
		seed += res.MACD[i]
	}
	prev := seed / float64(signal)
	res.Signal[seedEnd] = prev
	k := 2.0 / float64(signal+1)
	for i := seedEnd + 1; i < n; i++ {
		prev = res.MACD[i]*k + prev*(1-k)
		res.Signal[i] = prev
	}
	for i := seedEnd; i < n; i++ {
		res.Histogram[i] = res.MACD[i] - res.Signal[i]
	}
	return res
}

// ADXResult holds the directional movement lines
type ADXResult struct {
	ADX     Buffer
	PlusDI  Buffer
	MinusDI Buffer
}

// ADX computes Wilder's average directional index with +DI/-DI. The DI
// lines become valid at index period, the ADX line at index 2*period-1.
func ADX(bars []models.Bar, period int) ADXResult {
	n := len(bars)
	res := ADXResult{ADX: NewBuffer(n), PlusDI: NewBuffer(n), MinusDI: NewBuffer(n)}
	if period <= 0 || n < 2*period {
		return res
	}
	tr := TrueRange(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var str, spdm, smdm float64
	for i := 1; i <= period; i++ {
		str += tr[i]
		spdm += plusDM[i]
		smdm += minusDM[i]
	}
	dx := NewBuffer(n)
	for i := period; i < n; i++ {
		if i > period {
			// Wilder running smoothing of the raw sums
			str = str - str/float64(period) + tr[i]
			spdm = spdm - spdm/float64(period) + plusDM[i]
			smdm = smdm - smdm/float64(period) + minusDM[i]
		}
		if str == 0 {
			res.PlusDI[i] = 0
			res.MinusDI[i] = 0
		} else {
			res.PlusDI[i] = 100 * spdm / str
			res.MinusDI[i] = 100 * smdm / str
		}
		sum := res.PlusDI[i] + res.MinusDI[i]
		if sum == 0 {
			dx[i] = 0
		} else {
			dx[i] = 100 * math.Abs(res.PlusDI[i]-res.MinusDI[i]) / sum
		}
	}

	seed := 0.0
	for i := period; i < 2*period; i++ {
		seed += dx[i]
	}
	adx := seed / float64(period)
	res.ADX[2*period-1] = adx
	for i := 2 * period; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		res.ADX[i] = adx
	}
	return res
}

// IchimokuResult holds the five Ichimoku lines. SenkouA/SenkouB are plotted
// shifted forward by the kijun period, Chikou backward by the same amount.
type IchimokuResult struct {
	Tenkan  Buffer
	Kijun   Buffer
	SenkouA Buffer
	SenkouB Buffer
	Chikou  Buffer
}

// Ichimoku computes the Ichimoku Kinko Hyo lines with the conventional
// midpoint-of-range construction.
func Ichimoku(bars []models.Bar, tenkanPeriod, kijunPeriod, senkouBPeriod int) IchimokuResult {
	n := len(bars)
	res := IchimokuResult{
		Tenkan:  NewBuffer(n),
		Kijun:   NewBuffer(n),
		SenkouA: NewBuffer(n),
		SenkouB: NewBuffer(n),
		Chikou:  NewBuffer(n),
	}
	if tenkanPeriod <= 0 || kijunPeriod <= 0 || senkouBPeriod <= 0 {
		return res
	}
	highs := Highs(bars)
	lows := Lows(bars)
	mid := func(i, period int) float64 {
		return (highest(highs, i, period) + lowest(lows, i, period)) / 2
	}
	for i := 0; i < n; i++ {
		if i >= tenkanPeriod-1 {
			res.Tenkan[i] = mid(i, tenkanPeriod)
		}
		if i >= kijunPeriod-1 {
			res.Kijun[i] = mid(i, kijunPeriod)
		}
		if res.Tenkan.Valid(i) && res.Kijun.Valid(i) && i+kijunPeriod < n {
			res.SenkouA[i+kijunPeriod] = (res.Tenkan[i] + res.Kijun[i]) / 2
		}
		if i >= senkouBPeriod-1 && i+kijunPeriod < n {
			res.SenkouB[i+kijunPeriod] = mid(i, senkouBPeriod)
		}
		if i >= kijunPeriod {
			res.Chikou[i-kijunPeriod] = bars[i].Close
		}
	}
	return res
}
