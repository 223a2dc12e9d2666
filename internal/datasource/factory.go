package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/config"
)

// SourceType represents the type of data source
type SourceType string

const (
	// REST kline endpoint source type
	RESTSourceType SourceType = "rest"
	// CSV file data source type
	CSVSourceType SourceType = "csv"
)

// Factory creates BarSource implementations from configuration
type Factory struct {
	cfg config.DataSyncConfig
	log *logrus.Logger
}

// NewFactory creates a new data source factory
func NewFactory(cfg config.DataSyncConfig, log *logrus.Logger) *Factory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Factory{cfg: cfg, log: log}
}

// NewHTTPClient builds the shared rate-limited HTTP client from the sync
// configuration
func (f *Factory) NewHTTPClient() *RateLimitedHTTPClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(f.cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = f.cfg.RetryAttempts
	httpCfg.RateLimit = f.cfg.RequestsPerSecond
	return NewRateLimitedHTTPClient(httpCfg, f.log)
}

// Create builds a BarSource of the given type, wrapped in the TTL cache
func (f *Factory) Create(sourceType SourceType) (BarSource, error) {
	var source BarSource
	switch sourceType {
	case RESTSourceType:
		if f.cfg.RESTBaseURL == "" {
			return nil, fmt.Errorf("rest source requires rest_base_url")
		}
		source = NewKlineRESTClient(f.NewHTTPClient(), f.cfg.RESTBaseURL, f.cfg.APIKey, f.cfg.BatchSize, f.log)
	case CSVSourceType:
		return nil, fmt.Errorf("csv sources are directory-backed, use CreateCSV")
	default:
		return nil, fmt.Errorf("unknown data source type: %s", sourceType)
	}

	ttl := time.Duration(f.cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		return source, nil
	}
	f.log.WithFields(logrus.Fields{
		"source":    source.Name(),
		"cache_ttl": ttl,
	}).Debug("Created data source")
	return NewCachedBarSource(source, ttl), nil
}

// CreateCSV builds a file-backed BarSource rooted at dir, wrapped in the
// TTL cache
func (f *Factory) CreateCSV(dir string) (BarSource, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv source requires a directory")
	}
	source := NewCSVFileSource(dir, f.log)
	ttl := time.Duration(f.cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		return BarSource(source), nil
	}
	return NewCachedBarSource(source, ttl), nil
}

// NewStreamClient builds the live kline stream client
func (f *Factory) NewStreamClient() *KlineStreamClient {
	return NewKlineStreamClient(f.cfg.WSBaseURL, f.cfg.APIKey, f.log)
}
