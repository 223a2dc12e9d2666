package indicators

import "github.com/yourusername/graphtrader/internal/models"

// AppliedPrice selects which bar price feeds period-based math
type AppliedPrice string

const (
	PriceOpen     AppliedPrice = "open"
	PriceHigh     AppliedPrice = "high"
	PriceLow      AppliedPrice = "low"
	PriceClose    AppliedPrice = "close"
	PriceMedian   AppliedPrice = "median"
	PriceTypical  AppliedPrice = "typical"
	PriceWeighted AppliedPrice = "weighted"
)

// Apply resolves the applied price for every bar into a flat series.
// Unknown values fall back to close, matching the platform default.
func Apply(bars []models.Bar, price AppliedPrice) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		switch price {
		case PriceOpen:
			out[i] = b.Open
		case PriceHigh:
			out[i] = b.High
		case PriceLow:
			out[i] = b.Low
		case PriceMedian:
			out[i] = b.MedianPrice()
		case PriceTypical:
			out[i] = b.TypicalPrice()
		case PriceWeighted:
			out[i] = b.WeightedPrice()
		default:
			out[i] = b.Close
		}
	}
	return out
}

// Closes extracts the close series
func Closes(bars []models.Bar) []float64 {
	return Apply(bars, PriceClose)
}

// Highs extracts the high series
func Highs(bars []models.Bar) []float64 {
	return Apply(bars, PriceHigh)
}

// Lows extracts the low series
func Lows(bars []models.Bar) []float64 {
	return Apply(bars, PriceLow)
}
