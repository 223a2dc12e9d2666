package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/models"
)

// timeframeDurations maps configuration timeframes to bar durations
var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// TimeframeDuration resolves a timeframe string to its bar duration
func TimeframeDuration(timeframe string) (time.Duration, error) {
	d, ok := timeframeDurations[timeframe]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	return d, nil
}

// KlineRESTClient implements BarSource against a kline REST endpoint.
// The wire format is the conventional kline array: open time in epoch
// milliseconds followed by open/high/low/close/volume as decimal strings.
type KlineRESTClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	batchSize  int
	enabled    bool
	log        *logrus.Logger
}

// NewKlineRESTClient creates a new kline REST data source
func NewKlineRESTClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, batchSize int, log *logrus.Logger) *KlineRESTClient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &KlineRESTClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		batchSize:  batchSize,
		enabled:    true,
		log:        log,
	}
}

// Name returns the name of the data source
func (c *KlineRESTClient) Name() string {
	return "kline_rest"
}

// IsEnabled returns whether this data source is currently enabled
func (c *KlineRESTClient) IsEnabled() bool {
	return c.enabled
}

// FetchBars retrieves bars for a symbol and timeframe within [from, to).
// Requests are paginated by the configured batch size; the provider returns
// bars ordered by open time.
func (c *KlineRESTClient) FetchBars(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error) {
	if !c.enabled {
		return nil, NewDataSourceError(c.Name(), ErrCodeUnknown, "data source disabled", nil)
	}
	interval, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, err.Error(), nil)
	}
	if !to.After(from) {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData,
			fmt.Sprintf("empty range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339)), nil)
	}

	var all []models.Bar
	cursor := from
	for cursor.Before(to) {
		batch, err := c.fetchBatch(ctx, symbol, timeframe, cursor, to)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		next := batch[len(batch)-1].Time.Add(interval)
		if !next.After(cursor) {
			return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData,
				"provider returned non-advancing bar times", nil)
		}
		cursor = next
	}

	c.log.WithFields(logrus.Fields{
		"source":    c.Name(),
		"symbol":    symbol,
		"timeframe": timeframe,
		"bars":      len(all),
	}).Debug("Fetched bars")
	return all, nil
}

func (c *KlineRESTClient) fetchBatch(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("startTime", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(to.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(c.batchSize))
	endpoint := fmt.Sprintf("%s/klines?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "building request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewDataSourceError(c.Name(), ErrCodeAuthenticationFailed, resp.Status, ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(c.Name(), ErrCodeNotFound, "symbol "+symbol, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(c.Name(), ErrCodeRateLimitExceeded, resp.Status, ErrRateLimitExceeded)
	case resp.StatusCode >= 500:
		return nil, NewDataSourceError(c.Name(), ErrCodeServerError, resp.Status, ErrServerError)
	case resp.StatusCode != http.StatusOK:
		return nil, NewDataSourceError(c.Name(), ErrCodeUnknown, resp.Status, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "reading response", err)
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "malformed kline payload", err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKlineRow(row)
		if err != nil {
			return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData,
				fmt.Sprintf("kline %d: %v", i, err), ErrInvalidData)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKlineRow normalizes one kline array into a Bar. Prices arrive as
// decimal strings and are parsed exactly before conversion.
func parseKlineRow(row []json.RawMessage) (models.Bar, error) {
	if len(row) < 6 {
		return models.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}
	var openMilli int64
	if err := json.Unmarshal(row[0], &openMilli); err != nil {
		return models.Bar{}, fmt.Errorf("invalid open time: %w", err)
	}

	names := []string{"open", "high", "low", "close", "volume"}
	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		d, err := parseDecimalField(row[i+1])
		if err != nil {
			return models.Bar{}, fmt.Errorf("invalid %s: %w", names[i], err)
		}
		values[i] = d.InexactFloat64()
	}

	bar := models.Bar{
		Time:   time.UnixMilli(openMilli).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}
	if err := bar.Validate(); err != nil {
		return models.Bar{}, err
	}
	return bar, nil
}

// parseDecimalField accepts both quoted decimal strings and bare JSON numbers
func parseDecimalField(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromFloat(f), nil
}
