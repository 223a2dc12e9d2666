package bars

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/graphtrader/internal/models"
)

func TestParseCSVWithHeader(t *testing.T) {
	input := "timestamp,open,high,low,close,volume\n" +
		"2024-01-01 00:00:00,1.1000,1.1050,1.0950,1.1020,1500\n" +
		"2024-01-01 01:00:00,1.1020,1.1100,1.1000,1.1080,1800\n"
	bars, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 1.1020 {
		t.Errorf("expected close 1.1020, got %v", bars[0].Close)
	}
	if !bars[1].Time.After(bars[0].Time) {
		t.Error("expected ascending timestamps")
	}
}

func TestParseCSVUnixMillis(t *testing.T) {
	input := "1704067200000,100,101,99,100.5,10\n"
	bars, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !bars[0].Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, bars[0].Time)
	}
}

func TestParseCSVRejectsMalformedRows(t *testing.T) {
	input := "2024-01-01 00:00:00,1.10,1.11,1.09,1.10,100\n" +
		"2024-01-01 01:00:00,not-a-number,1.11,1.09,1.10,100\n" +
		"2024-01-01 02:00:00,1.10,1.09,1.11,1.10,100\n" // high below low
	_, err := ParseCSV(strings.NewReader(input))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if len(parseErr.Rows) != 2 {
		t.Fatalf("expected 2 rejected rows, got %d", len(parseErr.Rows))
	}
	if parseErr.Rows[0].Line != 2 {
		t.Errorf("expected first rejection on line 2, got %d", parseErr.Rows[0].Line)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestValidateSeriesOrdering(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(offset time.Duration) models.Bar {
		return models.Bar{Time: base.Add(offset), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1}
	}
	ordered := []models.Bar{mk(0), mk(time.Hour), mk(time.Hour)} // equal timestamps allowed
	if err := ValidateSeries(ordered); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	unordered := []models.Bar{mk(time.Hour), mk(0)}
	if err := ValidateSeries(unordered); err == nil {
		t.Fatal("expected error for descending timestamps")
	}
}

func TestValidateSeriesRejectsNonFinite(t *testing.T) {
	bad := []models.Bar{{
		Time: time.Now(), Open: 10, High: 11, Low: 9, Close: 10, Volume: -5,
	}}
	if err := ValidateSeries(bad); err == nil {
		t.Fatal("expected error for negative volume")
	}
}
