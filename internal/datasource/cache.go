package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/graphtrader/internal/models"
)

// barCacheKey identifies one fetched range
type barCacheKey struct {
	Symbol    string
	Timeframe string
	From      time.Time
	To        time.Time
}

func (k barCacheKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%d", k.Symbol, k.Timeframe, k.From.UnixMilli(), k.To.UnixMilli())
}

// CachedBarSource wraps a BarSource with an in-memory TTL cache so repeated
// runs over the same range avoid refetching
type CachedBarSource struct {
	source BarSource
	cache  *cache.Cache
	ttl    time.Duration

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedBarSource wraps source with a TTL cache
func NewCachedBarSource(source BarSource, ttl time.Duration) *CachedBarSource {
	return &CachedBarSource{
		source: source,
		cache:  cache.New(ttl, ttl*2),
		ttl:    ttl,
	}
}

// Name returns the name of the underlying data source
func (c *CachedBarSource) Name() string {
	return c.source.Name()
}

// IsEnabled returns whether the underlying data source is enabled
func (c *CachedBarSource) IsEnabled() bool {
	return c.source.IsEnabled()
}

// FetchBars serves the range from cache when present, otherwise delegates to
// the underlying source and caches the result
func (c *CachedBarSource) FetchBars(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error) {
	key := barCacheKey{Symbol: symbol, Timeframe: timeframe, From: from, To: to}.String()

	if cached, found := c.cache.Get(key); found {
		if bars, ok := cached.([]models.Bar); ok {
			c.mu.Lock()
			c.hitCount++
			c.mu.Unlock()
			return bars, nil
		}
	}
	c.mu.Lock()
	c.missCount++
	c.mu.Unlock()

	bars, err := c.source.FetchBars(ctx, symbol, timeframe, from, to)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, bars, c.ttl)
	return bars, nil
}

// Stats returns cache hit and miss counts
func (c *CachedBarSource) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount
}

// Flush drops all cached ranges
func (c *CachedBarSource) Flush() {
	c.cache.Flush()
}
