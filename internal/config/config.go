// Package config provides configuration management for the scene catalog search service.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backend types.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Grouped count strategies.
const (
	GroupedCountsNative        = "native"
	GroupedCountsPerCollection = "per-collection"
)

// Id lookup scopes.
const (
	IDsScopeGlobal      = "global"
	IDsScopeCollections = "collections"
)

// Spatial modes.
const (
	SpatialModeOverlap = "overlap"
	SpatialModeLegacy  = "legacy"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Backend  BackendConfig  `envPrefix:"BACKEND_"`
	STAC     STACConfig     `envPrefix:"STAC_"`
	Assets   AssetConfig
	Search   SearchConfig   `envPrefix:"SEARCH_"`
	Features FeatureConfig  `envPrefix:"FEATURE_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// BackendConfig contains repository selection configuration.
type BackendConfig struct {
	// Type specifies which repository to use: "sqlite" or "memory"
	Type         string        `env:"TYPE" envDefault:"sqlite"`
	Path         string        `env:"PATH" envDefault:"catalog.db"`
	SeedDir      string        `env:"SEED_DIR" envDefault:""`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"10"`

	// GroupedCounts selects how per-collection counts are computed: "native" uses the
	// repository's grouped aggregation, "per-collection" issues one count per collection
	GroupedCounts string `env:"GROUPED_COUNTS" envDefault:"native"`
}

// STACConfig contains STAC API metadata configuration.
type STACConfig struct {
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	BaseURL     string `env:"BASE_URL"` // Public-facing URL (required)
	Title       string `env:"TITLE" envDefault:"Scene Catalog STAC API"`
	Description string `env:"DESCRIPTION" envDefault:"STAC search over a remote-sensing scene catalog"`
}

// AssetConfig holds the public roots asset hrefs are resolved against.
type AssetConfig struct {
	TIFRoot string `env:"TIF_ROOT" envDefault:""`
	PNGRoot string `env:"PNG_ROOT" envDefault:""`
}

// SearchConfig contains search limits and predicate policies.
type SearchConfig struct {
	DefaultLimit int    `env:"DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit     int    `env:"MAX_LIMIT" envDefault:"1000"`
	IDsScope     string `env:"IDS_SCOPE" envDefault:"global"`
	SpatialMode  string `env:"SPATIAL_MODE" envDefault:"overlap"`
}

// FeatureConfig contains feature flags.
type FeatureConfig struct {
	EnableSearch     bool `env:"ENABLE_SEARCH" envDefault:"true"`
	EnableQueryables bool `env:"ENABLE_QUERYABLES" envDefault:"true"`
	EnableMetrics    bool `env:"ENABLE_METRICS" envDefault:"true"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	// Validate backend config
	switch c.Backend.Type {
	case BackendSQLite:
		if c.Backend.Path == "" {
			return fmt.Errorf("sqlite backend requires a database path")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("backend type must be 'sqlite' or 'memory', got %q", c.Backend.Type)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.Backend.Timeout)
	}

	if c.Backend.MaxOpenConns < 1 {
		return fmt.Errorf("backend max open connections must be at least 1, got %d", c.Backend.MaxOpenConns)
	}

	if c.Backend.GroupedCounts != GroupedCountsNative && c.Backend.GroupedCounts != GroupedCountsPerCollection {
		return fmt.Errorf("grouped counts must be 'native' or 'per-collection', got %q", c.Backend.GroupedCounts)
	}

	// Validate STAC config
	if c.STAC.BaseURL == "" {
		return fmt.Errorf("STAC base URL is required")
	}

	if c.STAC.Version == "" {
		return fmt.Errorf("STAC version is required")
	}

	// Validate search config
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("default limit must be at least 1, got %d", c.Search.DefaultLimit)
	}

	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("max limit (%d) must be >= default limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	if c.Search.IDsScope != IDsScopeGlobal && c.Search.IDsScope != IDsScopeCollections {
		return fmt.Errorf("ids scope must be 'global' or 'collections', got %q", c.Search.IDsScope)
	}

	if c.Search.SpatialMode != SpatialModeOverlap && c.Search.SpatialMode != SpatialModeLegacy {
		return fmt.Errorf("spatial mode must be 'overlap' or 'legacy', got %q", c.Search.SpatialMode)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
