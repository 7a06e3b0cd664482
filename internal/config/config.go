package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// DefaultProductFeedURL is the mock catalog the storefront ships against.
const DefaultProductFeedURL = "https://run.mocky.io/v3/5ab15ba4-fe75-4a4f-b54c-7efa540e3e3d"

// Wishlist store backends.
const (
	StoreElasticsearch = "elasticsearch"
	StoreRedis         = "redis"
	StoreMemory        = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort        int           `env:"PORT" envDefault:"5000"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Wishlist store selection
	WishlistStore     string `env:"WISHLIST_STORE" envDefault:"elasticsearch"`
	WishlistListLimit int    `env:"WISHLIST_LIST_LIMIT" envDefault:"1000"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"wishlist"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Slow store operations are logged at warn level; 0 disables it.
	SlowOperationThreshold time.Duration `env:"SLOW_OPERATION_THRESHOLD" envDefault:"500ms"`

	// Product feed
	ProductFeedURL string        `env:"PRODUCT_FEED_URL"`
	FeedTimeout    time.Duration `env:"FEED_TIMEOUT" envDefault:"10s"`
	FeedMaxRetries int           `env:"FEED_MAX_RETRIES" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Write endpoints rate limiting
	// Disabled by default; the public API contract has no 429.
	RateLimitRPS        float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst      int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	RateLimitTrustProxy bool    `env:"RATE_LIMIT_TRUST_PROXY" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load()
}

// LoadFrom reads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(pkgconfig.WithEnvironment(environ))
}

func load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	cfg.WishlistStore = strings.ToLower(strings.TrimSpace(cfg.WishlistStore))
	if strings.TrimSpace(cfg.ProductFeedURL) == "" {
		cfg.ProductFeedURL = DefaultProductFeedURL
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.WishlistStore {
	case StoreElasticsearch:
		if c.ElasticsearchURL == "" || c.ElasticsearchIndex == "" {
			return fmt.Errorf("ELASTICSEARCH_URL and ELASTICSEARCH_INDEX are required for the elasticsearch store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid WISHLIST_STORE %q: want elasticsearch, redis or memory", c.WishlistStore)
	}
	if c.WishlistListLimit < 1 {
		return fmt.Errorf("invalid WISHLIST_LIST_LIMIT: %d", c.WishlistListLimit)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("invalid FEED_TIMEOUT: %s", c.FeedTimeout)
	}
	if c.FeedMaxRetries < 0 {
		return fmt.Errorf("invalid FEED_MAX_RETRIES: %d", c.FeedMaxRetries)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: %v", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_BURST: %d", c.RateLimitBurst)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTelSampleRate)
	}
	return nil
}
