// Package config provides configuration types and loading for Record Gate.
//
// Configuration comes from a YAML file (record-gate.yaml) with environment
// variable overrides under the RECORD_GATE_ prefix.
package config

import "github.com/spf13/viper"

// Config is the top-level configuration for the Record Gate decision server.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Engine configures the expression evaluator.
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Store selects the policy store backend.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Bundle points to an optional policy bundle file seeded into the store
	// at startup.
	Bundle BundleConfig `yaml:"bundle" mapstructure:"bundle"`

	// Auth configures API key authentication for the decision API.
	// Optional: when empty, no authentication is enforced.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`
}

// ServerConfig configures the HTTP server.
// TLS is out of scope; use a reverse proxy for HTTPS.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// ReadTimeout and WriteTimeout bound request processing (e.g., "10s").
	ReadTimeout  string `yaml:"read_timeout" mapstructure:"read_timeout" validate:"omitempty"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout" validate:"omitempty"`
}

// EngineConfig configures the expression evaluator.
type EngineConfig struct {
	// MaxDepth bounds operation nesting during evaluation.
	// Defaults to 50 if zero.
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth" validate:"omitempty,min=1,max=10000"`

	// CacheSize bounds the access decision cache entry count.
	// Defaults to 1000 if zero.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size" validate:"omitempty,min=0"`
}

// StoreConfig selects and configures the policy store backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite". Defaults to "memory".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory sqlite"`

	// SQLitePath is the database file path, required for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// BundleConfig points to a policy bundle file.
type BundleConfig struct {
	// Path is the YAML or JSON bundle file. Optional.
	Path string `yaml:"path" mapstructure:"path"`
}

// AuthConfig configures decision API authentication.
type AuthConfig struct {
	// APIKeys lists accepted key hashes. Each entry is "sha256:<hex>",
	// bare SHA-256 hex, or an Argon2id PHC string.
	// Generate with: record-gate hash-key "my-secret"
	APIKeys []string `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive,key_hash"`
}

// Default values applied by SetDefaults.
const (
	DefaultHTTPAddr     = "127.0.0.1:8080"
	DefaultLogLevel     = "info"
	DefaultReadTimeout  = "10s"
	DefaultWriteTimeout = "10s"
	DefaultMaxDepth     = 50
	DefaultCacheSize    = 1000
	DefaultBackend      = "memory"
)

// SetDefaults fills in defaults for optional fields.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Engine.MaxDepth == 0 {
		c.Engine.MaxDepth = DefaultMaxDepth
	}
	if c.Engine.CacheSize == 0 {
		c.Engine.CacheSize = DefaultCacheSize
	}
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultBackend
	}
}

// SetViperDefaults registers defaults with Viper so env-only configuration
// picks them up before Unmarshal.
func SetViperDefaults() {
	viper.SetDefault("server.http_addr", DefaultHTTPAddr)
	viper.SetDefault("server.log_level", DefaultLogLevel)
	viper.SetDefault("engine.max_depth", DefaultMaxDepth)
	viper.SetDefault("engine.cache_size", DefaultCacheSize)
	viper.SetDefault("store.backend", DefaultBackend)
}
