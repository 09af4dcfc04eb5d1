package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Crawler   CrawlerConfig
	Sitemap   SitemapConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// MaxRequestMB caps request bodies.
	MaxRequestMB int // default: 1

	// Environment is reported by the health endpoint.
	Environment string // default: "production"
}

// CrawlerConfig controls fetching and crawl scheduling.
type CrawlerConfig struct {
	UserAgent    string
	FetchTimeout time.Duration // default: 10s

	// Delay is the minimum spacing between two fetch dispatches.
	Delay time.Duration // default: 200ms

	// BatchSize is the number of concurrent fetches per batch.
	BatchSize int // default: 5

	MaxBodyMB int // default: 10

	// PriorityPolicy is "fixed" (0.5 for every page) or "depth".
	PriorityPolicy string // default: "fixed"

	// ChromeTLS dials https targets with a Chrome-like ClientHello.
	ChromeTLS bool // default: true
}

// SitemapConfig controls sitemap generation.
type SitemapConfig struct {
	MaxURLs           int    // default: 50000
	DefaultChangefreq string // default: "weekly"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key or client IP.
	Burst int // default: 10
}

// CacheConfig controls the crawl result cache.
type CacheConfig struct {
	MaxEntries int           // default: 256
	TTL        time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// Call LoadEnvFiles first to pick up a local .env file.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         envOr("SITEMAPPER_HOST", "0.0.0.0"),
			Port:         envIntOr("SITEMAPPER_PORT", 8080),
			Mode:         envOr("SITEMAPPER_MODE", "release"),
			MaxRequestMB: envIntOr("SITEMAPPER_MAX_REQUEST_MB", 1),
			Environment:  envOr("SITEMAPPER_ENVIRONMENT", "production"),
		},
		Crawler: CrawlerConfig{
			UserAgent:      envOr("SITEMAPPER_USER_AGENT", "SitemapGenerator/1.0 (+https://sitemap-generator.example.com)"),
			FetchTimeout:   envDurationOr("SITEMAPPER_FETCH_TIMEOUT", 10*time.Second),
			Delay:          envDurationOr("SITEMAPPER_CRAWL_DELAY", 200*time.Millisecond),
			BatchSize:      envIntOr("SITEMAPPER_BATCH_SIZE", 5),
			MaxBodyMB:      envIntOr("SITEMAPPER_MAX_BODY_MB", 10),
			PriorityPolicy: envOr("SITEMAPPER_PRIORITY_POLICY", "fixed"),
			ChromeTLS:      envBoolOr("SITEMAPPER_CHROME_TLS", true),
		},
		Sitemap: SitemapConfig{
			MaxURLs:           envIntOr("SITEMAPPER_MAX_URLS_PER_SITEMAP", 50000),
			DefaultChangefreq: envOr("SITEMAPPER_DEFAULT_CHANGEFREQ", "weekly"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SITEMAPPER_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SITEMAPPER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SITEMAPPER_RATE_RPS", 5.0),
			Burst:             envIntOr("SITEMAPPER_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SITEMAPPER_CACHE_MAX_ENTRIES", 256),
			TTL:        envDurationOr("SITEMAPPER_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("SITEMAPPER_LOG_LEVEL", "info"),
			Format: envOr("SITEMAPPER_LOG_FORMAT", "json"),
		},
	}
}

// LoadEnvFiles loads the given dotenv files, skipping any that do not
// exist, and returns the ones it loaded. Variables already set in the
// process environment take precedence. With no arguments it reads ".env".
func LoadEnvFiles(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, fmt.Errorf("load %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// Validate reports every setting that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Server.MaxRequestMB <= 0 {
		errs = append(errs, errors.New("max request size must be positive"))
	}
	if c.Crawler.BatchSize <= 0 {
		errs = append(errs, errors.New("crawler batch size must be positive"))
	}
	if c.Crawler.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.Crawler.Delay < 0 {
		errs = append(errs, errors.New("crawl delay must not be negative"))
	}
	if c.Crawler.MaxBodyMB <= 0 {
		errs = append(errs, errors.New("max body size must be positive"))
	}
	if p := c.Crawler.PriorityPolicy; p != "fixed" && p != "depth" {
		errs = append(errs, fmt.Errorf("unknown priority policy %q", p))
	}
	if c.Sitemap.MaxURLs <= 0 || c.Sitemap.MaxURLs > 50000 {
		errs = append(errs, fmt.Errorf("sitemap url limit %d must be between 1 and 50000", c.Sitemap.MaxURLs))
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("auth enabled but no API keys configured"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port the server listens on.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
