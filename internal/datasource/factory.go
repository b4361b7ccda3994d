package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/config"
)

// F1APISourceType is the f1api.dev JSON API
const F1APISourceType = f1APISourceName

// NewHTTPClientFromConfig builds the rate-limited client for a configured source
func NewHTTPClientFromConfig(cfg config.DataSourceConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Timeout()
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateLimit = cfg.RateLimit
	httpCfg.CircuitBreakerMax = cfg.CircuitBreakerMax
	httpCfg.CircuitCooldown = 2 * time.Duration(cfg.TimeoutSeconds) * time.Second
	return NewRateLimitedHTTPClient(httpCfg, logger)
}

// NewDataSource creates a new DataSource based on the provided configuration
func NewDataSource(cfg config.DataSourceConfig, httpClient *RateLimitedHTTPClient, logger *logrus.Logger) (DataSource, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}

	switch cfg.Name {
	case F1APISourceType:
		return NewF1APIClient(httpClient, cfg.BaseURL, cfg.APIKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Name)
	}
}
