// Package config binds process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	maxBatchBlocks    = 20000
	minBatchBlocks    = 1
	maxRateLimit      = 200
	minRateLimit      = 0
	maxHTTPRetries    = 10
	maxBalanceWorkers = 64
	minScanTimeout    = 100 * time.Millisecond
	maxScanTimeout    = 24 * time.Hour
	minHolderCacheTTL = time.Minute
	maxHolderCacheTTL = 7 * 24 * time.Hour
)

// Config holds 12-factor environment configuration.
type Config struct {
	ProviderURL     string        `envconfig:"ETH_PROVIDER_URL"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"0"` // RPC requests per second, 0 = unlimited
	HTTPRetries     int           `envconfig:"HTTP_RETRIES" default:"2"`
	HTTPBackoffBase time.Duration `envconfig:"HTTP_BACKOFF_BASE" default:"100ms"`

	ScanTimeout    time.Duration `envconfig:"SCAN_TIMEOUT" default:"10m"`
	BatchBlocks    int           `envconfig:"SCAN_BATCH_BLOCKS" default:"1000"`
	MinBatchBlocks int           `envconfig:"SCAN_MIN_BATCH_BLOCKS" default:"100"`
	BalanceWorkers int           `envconfig:"BALANCE_WORKERS" default:"1"`

	RedisURL       string        `envconfig:"REDIS_URL"`
	HolderCacheTTL time.Duration `envconfig:"HOLDER_CACHE_TTL" default:"1h"`

	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load reads an optional .env file from the working directory, binds the
// environment and clamps numeric values into their supported ranges.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	if c.ClickHouseDSN == "" {
		c.ClickHouseDSN = BuildClickHouseDSN()
	}
	c.clamp()
	return c, nil
}

func (c *Config) clamp() {
	c.RateLimit = clampInt(c.RateLimit, minRateLimit, maxRateLimit)
	c.HTTPRetries = clampInt(c.HTTPRetries, 0, maxHTTPRetries)
	if c.HTTPBackoffBase <= 0 {
		c.HTTPBackoffBase = 100 * time.Millisecond
	}
	c.BatchBlocks = clampInt(c.BatchBlocks, minBatchBlocks, maxBatchBlocks)
	c.MinBatchBlocks = clampInt(c.MinBatchBlocks, minBatchBlocks, c.BatchBlocks)
	c.BalanceWorkers = clampInt(c.BalanceWorkers, 1, maxBalanceWorkers)
	c.ScanTimeout = clampDuration(c.ScanTimeout, minScanTimeout, maxScanTimeout)
	c.HolderCacheTTL = clampDuration(c.HolderCacheTTL, minHolderCacheTTL, maxHolderCacheTTL)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// BuildClickHouseDSN assembles a DSN from CLICKHOUSE_URL/DB/USER/PASS.
// It returns "" unless both URL and DB are set.
func BuildClickHouseDSN() string {
	base := os.Getenv("CLICKHOUSE_URL") // e.g., http://localhost:8123
	db := os.Getenv("CLICKHOUSE_DB")
	user := os.Getenv("CLICKHOUSE_USER")
	pass := os.Getenv("CLICKHOUSE_PASS")
	if base == "" || db == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + db
	}
	if user != "" {
		if pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	p := strings.TrimRight(u.Path, "/")
	switch {
	case p == "":
		u.Path = "/" + db
	case strings.HasSuffix(p, "/"+db):
		u.Path = p
	default:
		u.Path = p + "/" + db
	}
	return u.String()
}

// RedactDSN hides credentials in DSN-like URLs to avoid logging secrets.
func RedactDSN(s string) string {
	if s == "" {
		return s
	}
	if u, err := url.Parse(s); err == nil && u.User != nil {
		if name := u.User.Username(); name != "" {
			u.User = url.UserPassword(name, "***")
		} else {
			u.User = url.User("***")
		}
		return u.String()
	}
	return redactRaw(s)
}

// redactRaw masks "user:pass@" in strings url.Parse rejects.
func redactRaw(s string) string {
	i := strings.Index(s, "//")
	if i < 0 {
		return s
	}
	j := strings.Index(s[i+2:], "@")
	if j <= 0 {
		return s
	}
	creds := s[i+2 : i+2+j]
	if !strings.Contains(creds, ":") {
		return s
	}
	user := strings.SplitN(creds, ":", 2)[0]
	return s[:i+2] + user + ":***@" + s[i+2+j+1:]
}
