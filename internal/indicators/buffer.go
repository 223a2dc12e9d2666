// Package indicators provides pure indicator math over flat bar-aligned
// buffers. Entries before an indicator's warmup are NaN and must never be
// read as prices.
package indicators

import "math"

// Buffer is a numeric series aligned 1:1 with the bar array. NaN marks the
// warmup region where the indicator has no defined value yet.
type Buffer []float64

// NewBuffer allocates a buffer of n entries, all marked not-yet-valid
func NewBuffer(n int) Buffer {
	b := make(Buffer, n)
	for i := range b {
		b[i] = math.NaN()
	}
	return b
}

// Valid reports whether index i holds a computed value
func (b Buffer) Valid(i int) bool {
	return i >= 0 && i < len(b) && !math.IsNaN(b[i])
}

// At returns the value at i, or NaN when out of range
func (b Buffer) At(i int) float64 {
	if i < 0 || i >= len(b) {
		return math.NaN()
	}
	return b[i]
}

// FirstValid returns the index of the first computed entry, or -1 when the
// whole buffer is still warming up
func (b Buffer) FirstValid() int {
	for i, v := range b {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// highest returns the maximum of values[i-period+1 .. i]
func highest(values []float64, i, period int) float64 {
	h := values[i]
	for j := i - period + 1; j < i; j++ {
		if values[j] > h {
			h = values[j]
		}
	}
	return h
}

// lowest returns the minimum of values[i-period+1 .. i]
func lowest(values []float64, i, period int) float64 {
	l := values[i]
	for j := i - period + 1; j < i; j++ {
		if values[j] < l {
			l = values[j]
		}
	}
	return l
}
