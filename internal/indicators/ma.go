package indicators

// MAMethod selects the smoothing convention for a moving average
type MAMethod string

const (
	MASimple   MAMethod = "sma"
	MAExponent MAMethod = "ema"
	MASmoothed MAMethod = "smma"
	MAWeighted MAMethod = "lwma"
)

// MovingAverage dispatches to the requested smoothing method. Unknown
// methods fall back to simple.
func MovingAverage(values []float64, period int, method MAMethod) Buffer {
	switch method {
	case MAExponent:
		return EMA(values, period)
	case MASmoothed:
		return SMMA(values, period)
	case MAWeighted:
		return LWMA(values, period)
	default:
		return SMA(values, period)
	}
}

// SMA computes the simple moving average. Warmup is period-1 bars.
func SMA(values []float64, period int) Buffer {
	out := NewBuffer(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with k = 2/(period+1), seeded
// by the SMA of the first period values. Warmup is period-1 bars.
func EMA(values []float64, period int) Buffer {
	out := NewBuffer(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[period-1] = prev
	for i := period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// SMMA computes the Wilder smoothed moving average: an SMA seed blended by
// (prev*(period-1)+value)/period. Warmup is period-1 bars.
func SMMA(values []float64, period int) Buffer {
	out := NewBuffer(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[period-1] = prev
	for i := period; i < len(values); i++ {
		prev = (prev*float64(period-1) + values[i]) / float64(period)
		out[i] = prev
	}
	return out
}

// LWMA computes the linearly weighted moving average, newest bar carrying
// the largest weight. Warmup is period-1 bars.
func LWMA(values []float64, period int) Buffer {
	out := NewBuffer(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += values[i-j] * float64(period-j)
		}
		out[i] = sum / denom
	}
	return out
}
