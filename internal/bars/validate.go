package bars

import (
	"fmt"

	"github.com/yourusername/graphtrader/internal/models"
)

// ValidateSeries checks an already-parsed bar sequence: every bar must be
// internally consistent and timestamps strictly non-decreasing. The first
// violation fails the series.
func ValidateSeries(bars []models.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("empty bar series")
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && b.Time.Before(bars[i-1].Time) {
			return fmt.Errorf("bar %d: timestamp %s earlier than previous bar %s",
				i, b.Time.Format("2006-01-02 15:04:05"), bars[i-1].Time.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
