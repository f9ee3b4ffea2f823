package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/buildcache/lockfile"
	"github.com/jonwraymond/buildcache/observe"
	"github.com/jonwraymond/buildcache/retention"
)

// Config is the full configuration surface of the cache engine.
type Config struct {
	// CacheDir is the shared cache root directory.
	CacheDir string `mapstructure:"cache_dir"`

	// Version is the schema version segment under the root.
	Version string `mapstructure:"version"`

	Lock      LockConfig      `mapstructure:"lock"`
	Retention RetentionConfig `mapstructure:"retention"`
	Observe   ObserveConfig   `mapstructure:"observe"`
}

// LockConfig configures workspace lock acquisition.
type LockConfig struct {
	// Timeout is the maximum wait before a workspace request fails with a
	// lock timeout. Zero means a single non-blocking attempt.
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryInterval is the poll interval while waiting for a cross-process
	// lock.
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RetentionConfig configures the eviction engine.
type RetentionConfig struct {
	// MaxAgeDays evicts entries unused for more than this many days.
	MaxAgeDays int `mapstructure:"max_age_days"`

	// CleanupInterval is the pause between periodic sweeps.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// Scope is "outputs" (remove the whole workspace) or "history"
	// (remove recorded history only).
	Scope string `mapstructure:"scope"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName     string  `mapstructure:"service_name"`
	LogLevel        string  `mapstructure:"log_level"`
	LoggingEnabled  bool    `mapstructure:"logging_enabled"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	TracingSample   float64 `mapstructure:"tracing_sample"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
}

// Load reads configuration from the given YAML file (optional), the
// BUILDCACHE_ environment, and built-in defaults. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("BUILDCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("version", "1")
	v.SetDefault("lock.timeout", "60s")
	v.SetDefault("lock.retry_interval", "50ms")
	v.SetDefault("retention.max_age_days", 7)
	v.SetDefault("retention.cleanup_interval", "24h")
	v.SetDefault("retention.scope", "outputs")
	v.SetDefault("observe.service_name", "buildcache")
	v.SetDefault("observe.log_level", "info")
	v.SetDefault("observe.logging_enabled", true)
	v.SetDefault("observe.tracing_exporter", "none")
	v.SetDefault("observe.tracing_sample", 1.0)
	v.SetDefault("observe.metrics_exporter", "none")
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".buildcache"
	}
	return filepath.Join(base, "buildcache")
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New("config: cache_dir is required")
	}
	if c.Version == "" {
		return errors.New("config: version is required")
	}
	if c.Lock.Timeout < 0 {
		return fmt.Errorf("config: lock.timeout must not be negative, got %s", c.Lock.Timeout)
	}
	if c.Retention.MaxAgeDays <= 0 {
		return fmt.Errorf("config: retention.max_age_days must be positive, got %d", c.Retention.MaxAgeDays)
	}
	if c.Retention.CleanupInterval <= 0 {
		return fmt.Errorf("config: retention.cleanup_interval must be positive, got %s", c.Retention.CleanupInterval)
	}
	switch c.Retention.Scope {
	case "outputs", "history":
	default:
		return fmt.Errorf("config: unknown retention.scope %q", c.Retention.Scope)
	}
	return nil
}

// LockOptions adapts the lock section for the lock manager.
func (c *Config) LockOptions() lockfile.Options {
	return lockfile.Options{
		Timeout:       c.Lock.Timeout,
		RetryInterval: c.Lock.RetryInterval,
	}
}

// RetentionPolicy adapts the retention section for the eviction engine.
func (c *Config) RetentionPolicy() retention.Policy {
	scope := retention.ScopeOutputs
	if c.Retention.Scope == "history" {
		scope = retention.ScopeHistory
	}
	return retention.Policy{
		MaxAge:          time.Duration(c.Retention.MaxAgeDays) * 24 * time.Hour,
		CleanupInterval: c.Retention.CleanupInterval,
		Scope:           scope,
	}
}

// ObserverConfig adapts the observe section for the telemetry stack.
func (c *Config) ObserverConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.TracingExporter != "" && c.Observe.TracingExporter != "none",
			Exporter:  c.Observe.TracingExporter,
			SamplePct: c.Observe.TracingSample,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.MetricsExporter != "" && c.Observe.MetricsExporter != "none",
			Exporter: c.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.LoggingEnabled,
			Level:   c.Observe.LogLevel,
		},
	}
}
