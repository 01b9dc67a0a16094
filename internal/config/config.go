package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultUserAgent is a browser-like identification string. Several brand
// sites answer 401/403 to script-like agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Brands     BrandsConfig     `yaml:"brands" mapstructure:"brands"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Awards     AwardsConfig     `yaml:"awards" mapstructure:"awards"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the document store backing the brand registry.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // file, postgres, sqlite, http
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	Path          string `yaml:"path" mapstructure:"path"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// BrandsConfig locates the brand properties document.
type BrandsConfig struct {
	Collection string `yaml:"collection" mapstructure:"collection"`
	Document   string `yaml:"document" mapstructure:"document"`
}

// FetchConfig tunes outbound HTTP to brand sites.
type FetchConfig struct {
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerHost      float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	BurstPerHost     int     `yaml:"burst_per_host" mapstructure:"burst_per_host"`
	MaxConcurrency   int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	MaxBodyKB        int     `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// AwardsConfig configures the award pipeline.
type AwardsConfig struct {
	ListingPath           string  `yaml:"listing_path" mapstructure:"listing_path"`
	IndexPath             string  `yaml:"index_path" mapstructure:"index_path"`
	FallbackBrand         string  `yaml:"fallback_brand" mapstructure:"fallback_brand"`
	IDStrategy            string  `yaml:"id_strategy" mapstructure:"id_strategy"` // view_node, hash
	Matcher               string  `yaml:"matcher" mapstructure:"matcher"`         // substring, token
	TokenThreshold        float64 `yaml:"token_threshold" mapstructure:"token_threshold"`
	UpstreamImageFallback bool    `yaml:"upstream_image_fallback" mapstructure:"upstream_image_fallback"`
}

// CacheConfig configures the award response cache.
type CacheConfig struct {
	TTLHours      int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	Backend       string `yaml:"backend" mapstructure:"backend"` // memory, redis
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// TTL returns the cache time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ScheduleConfig configures background cache warming.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Spec    string `yaml:"spec" mapstructure:"spec"`
	Brands  bool   `yaml:"brands" mapstructure:"brands"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MonitoringConfig configures run alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks
// for an optional config.yaml in the working directory; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("AWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "documents.yaml")
	v.SetDefault("store.cache_ttl_hours", 24)
	v.SetDefault("brands.collection", "dashboard-config")
	v.SetDefault("brands.document", "brand-all-properties")
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.rate_per_host", 5)
	v.SetDefault("fetch.burst_per_host", 5)
	v.SetDefault("fetch.max_concurrency", 16)
	v.SetDefault("fetch.max_body_kb", 4096)
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_reset_secs", 60)
	v.SetDefault("awards.listing_path", "/node/content-menu/awards.json")
	v.SetDefault("awards.index_path", "/awards")
	v.SetDefault("awards.fallback_brand", "sbr")
	v.SetDefault("awards.id_strategy", "view_node")
	v.SetDefault("awards.matcher", "substring")
	v.SetDefault("awards.token_threshold", 0.6)
	v.SetDefault("awards.upstream_image_fallback", false)
	v.SetDefault("cache.ttl_hours", 168)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.key_prefix", "awards:")
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.spec", "@every 24h")
	v.SetDefault("schedule.brands", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that settings required by the given mode ("serve" or
// "aggregate") are present. All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "aggregate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the file driver")
		}
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, fmt.Sprintf("store.database_url is required for the %s driver", c.Store.Driver))
		}
	case "http":
		if c.Store.BaseURL == "" {
			errs = append(errs, "store.base_url is required for the http driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, "cache.redis_addr is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown cache.backend %q", c.Cache.Backend))
	}

	if c.Awards.IDStrategy != "view_node" && c.Awards.IDStrategy != "hash" {
		errs = append(errs, fmt.Sprintf("unknown awards.id_strategy %q", c.Awards.IDStrategy))
	}
	if c.Awards.Matcher != "substring" && c.Awards.Matcher != "token" {
		errs = append(errs, fmt.Sprintf("unknown awards.matcher %q", c.Awards.Matcher))
	}
	if c.Awards.TokenThreshold <= 0 || c.Awards.TokenThreshold > 1 {
		errs = append(errs, "awards.token_threshold must be in (0, 1]")
	}
	if c.Cache.TTLHours <= 0 {
		errs = append(errs, "cache.ttl_hours must be > 0")
	}
	if c.Fetch.MaxConcurrency < 1 || c.Fetch.MaxConcurrency > 128 {
		errs = append(errs, "fetch.max_concurrency must be between 1 and 128")
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be in [0, 1]")
	}
	if c.Brands.Collection == "" || c.Brands.Document == "" {
		errs = append(errs, "brands.collection and brands.document are required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
