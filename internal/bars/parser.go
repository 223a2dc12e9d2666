// Package bars parses and validates OHLCV series before they reach the
// execution engine. Malformed rows are rejected with structured errors,
// never dropped silently.
package bars

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/graphtrader/internal/models"
)

// RowError describes a single rejected input row
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// ParseError aggregates every rejected row of a parse attempt
type ParseError struct {
	Rows []RowError
}

func (e *ParseError) Error() string {
	if len(e.Rows) == 1 {
		return e.Rows[0].Error()
	}
	return fmt.Sprintf("%d invalid rows, first: %s", len(e.Rows), e.Rows[0].Error())
}

// timestamp layouts accepted in the first column, tried in order
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseCSV reads an ordered `timestamp,open,high,low,close,volume` stream.
// A header row is skipped when detected. Unix timestamps in seconds or
// milliseconds are accepted alongside the date layouts. Any invalid row
// fails the whole parse via ParseError.
func ParseCSV(r io.Reader) ([]models.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var bars []models.Bar
	var rowErrs []RowError
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if line == 1 && looksLikeHeader(record) {
			continue
		}
		bar, err := parseRecord(record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		bars = append(bars, bar)
	}
	if len(rowErrs) > 0 {
		return nil, &ParseError{Rows: rowErrs}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid bars parsed")
	}
	if err := ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func looksLikeHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "timestamp" || first == "time" || first == "date" || first == "open_time"
}

func parseRecord(record []string) (models.Bar, error) {
	if len(record) < 6 {
		return models.Bar{}, fmt.Errorf("expected 6 columns, got %d", len(record))
	}
	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return models.Bar{}, err
	}
	fields := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("invalid %s %q", names[i], record[i+1])
		}
		fields[i] = v
	}
	bar := models.Bar{
		Time:   ts,
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}
	if err := bar.Validate(); err != nil {
		return models.Bar{}, err
	}
	return bar, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// heuristically seconds vs milliseconds
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
