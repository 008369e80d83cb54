// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CatalogConfig points at the restaurant catalog API.
type CatalogConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	UpdateEndpoint  string `mapstructure:"update_endpoint"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	FallbackID      string `mapstructure:"fallback_id"`
	FallbackName    string `mapstructure:"fallback_name"`
	FallbackURL     string `mapstructure:"fallback_url"`
	FallbackCity    string `mapstructure:"fallback_city"`
	FallbackCountry string `mapstructure:"fallback_country"`
}

// FetchConfig configures the page fetch retry behavior.
type FetchConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	MaxBodyBytes     int    `mapstructure:"max_body_bytes"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	NavTimeoutSec  int      `mapstructure:"nav_timeout_seconds"`
	MinHTMLBytes   int      `mapstructure:"min_html_bytes"`
	ShellKeywords  []string `mapstructure:"shell_keywords"`
	ContentSelects []string `mapstructure:"content_selectors"`
}

// StorageConfig selects the blob store and its location.
type StorageConfig struct {
	Provider    string `mapstructure:"provider"` // gcs, local, or memory
	GCSBucket   string `mapstructure:"gcs_bucket"`
	LocalDir    string `mapstructure:"local_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// DBConfig controls the optional scrape-history database.
type DBConfig struct {
	Provider string `mapstructure:"provider"` // postgres, memory, or noop
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for completion event publishing.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"` // pubsub, memory, or noop
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("catalog.endpoint", "https://viberoam.ai/api/restaurants/random/?country=NL&never_scraped=1")
	v.SetDefault("catalog.update_endpoint", "")
	v.SetDefault("catalog.timeout_seconds", 10)
	v.SetDefault("catalog.fallback_id", "fallback-001")
	v.SetDefault("catalog.fallback_name", "De Kas")
	v.SetDefault("catalog.fallback_url", "https://www.tripadvisor.com/Restaurant_Review-g188590-d696902-Reviews-De_Kas-Amsterdam_North_Holland_Province.html")
	v.SetDefault("catalog.fallback_city", "Amsterdam")
	v.SetDefault("catalog.fallback_country", "Netherlands")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_initial_ms", 250)
	v.SetDefault("fetch.backoff_max_ms", 5000)
	v.SetDefault("fetch.max_body_bytes", 10*1024*1024)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_html_bytes", 2000)
	v.SetDefault("headless.shell_keywords", []string{"__NEXT_DATA__", "window.__WEB_CONTEXT__"})
	v.SetDefault("headless.content_selectors", []string{})
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.prefix", "scraped_data")
	v.SetDefault("storage.content_type", "application/json; charset=utf-8")
	v.SetDefault("db.provider", "noop")
	v.SetDefault("db.table", "scrapes")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.provider", "noop")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Catalog.Endpoint == "" {
		return fmt.Errorf("catalog.endpoint is required")
	}
	if _, err := url.Parse(c.Catalog.Endpoint); err != nil {
		return fmt.Errorf("catalog.endpoint is not a valid URL: %w", err)
	}
	if c.Catalog.FallbackURL == "" {
		return fmt.Errorf("catalog.fallback_url is required")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries cannot be negative")
	}
	if c.Fetch.BackoffInitialMs <= 0 {
		return fmt.Errorf("fetch.backoff_initial_ms must be > 0")
	}
	if c.Fetch.BackoffMaxMs < c.Fetch.BackoffInitialMs {
		return fmt.Errorf("fetch.backoff_max_ms must be >= fetch.backoff_initial_ms")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required when storage.provider is gcs")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required when storage.provider is local")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required when db.provider is postgres")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	switch c.PubSub.Provider {
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required when pubsub.provider is pubsub")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown pubsub.provider %q", c.PubSub.Provider)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout returns the per-attempt fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// CatalogTimeout returns the catalog call timeout as a duration.
func (c Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}
