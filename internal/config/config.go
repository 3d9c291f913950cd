// Package config loads runtime settings from .env, an optional YAML file,
// TERRITORY_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"territory-route-service/internal/domain"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TERRITORY"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DistanceConfig struct {
	// Provider is one of google, osrm, ors or none (great-circle only).
	Provider     string        `mapstructure:"provider"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	ORSAPIKey    string        `mapstructure:"ors_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBatch     int           `mapstructure:"max_batch"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
	Retries      int           `mapstructure:"retries"`
	CrossTerms   bool          `mapstructure:"cross_terms"`
}

type CacheConfig struct {
	// Driver is one of none, sqlite, postgres or redis.
	Driver   string        `mapstructure:"driver"`
	DSN      string        `mapstructure:"dsn"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type PlanConfig struct {
	Restarts      int     `mapstructure:"restarts"`
	MaxIterations int     `mapstructure:"max_iterations"`
	Seed          int64   `mapstructure:"seed"`
	Tolerance     float64 `mapstructure:"tolerance"`
	Ordering      string  `mapstructure:"ordering"`
	Workers       int     `mapstructure:"workers"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type Config struct {
	// Territories and Days of 0 mean "not set"; the CLI prompts for them.
	Territories int    `mapstructure:"territories"`
	Days        int    `mapstructure:"days"`
	Input       string `mapstructure:"input"`
	Sheet       string `mapstructure:"sheet"`
	Output      string `mapstructure:"output"`
	NameColumn  string `mapstructure:"name_column"`

	Log      LogConfig      `mapstructure:"log"`
	Distance DistanceConfig `mapstructure:"distance"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Plan     PlanConfig     `mapstructure:"plan"`
	Server   ServerConfig   `mapstructure:"server"`
}

// Defaults mirror the planner's built-in tunables.
var Defaults = map[string]any{
	"territories": 0,
	"days":        0,
	"input":       "",
	"sheet":       "",
	"output":      "routes.xlsx",
	"name_column": "Retailer",

	"log.level":  "info",
	"log.format": "console",

	"distance.provider":       "google",
	"distance.google_api_key": "",
	"distance.ors_api_key":    "",
	"distance.base_url":       "",
	"distance.timeout":        15 * time.Second,
	"distance.max_batch":      25,
	"distance.rate_interval":  100 * time.Millisecond,
	"distance.retries":        1,
	"distance.cross_terms":    true,

	"cache.driver":    "none",
	"cache.dsn":       "",
	"cache.redis_url": "",
	"cache.ttl":       30 * 24 * time.Hour,

	"plan.restarts":       20,
	"plan.max_iterations": 500,
	"plan.seed":           42,
	"plan.tolerance":      1e-4,
	"plan.ordering":       "latlon",
	"plan.workers":        1,

	"server.addr":           ":8080",
	"server.write_timeout":  120 * time.Second,
	"server.max_body_bytes": 10 << 20,
}

// Extra environment names accepted for secrets and connection strings.
var envAliases = map[string][]string{
	"distance.google_api_key": {"GOOGLE_MAPS_API_KEY"},
	"distance.ors_api_key":    {"ORS_API_KEY"},
	"cache.dsn":               {"DATABASE_URL"},
	"cache.redis_url":         {"REDIS_URL"},
	"server.addr":             {"ADDR"},
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"territories":   "territories",
	"days":          "days",
	"input":         "input",
	"sheet":         "sheet",
	"output":        "output",
	"name-column":   "name_column",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"provider":      "distance.provider",
	"max-batch":     "distance.max_batch",
	"cross-terms":   "distance.cross_terms",
	"retries":       "distance.retries",
	"rate-interval": "distance.rate_interval",
	"cache":         "cache.driver",
	"cache-dsn":     "cache.dsn",
	"seed":          "plan.seed",
	"restarts":      "plan.restarts",
	"ordering":      "plan.ordering",
	"workers":       "plan.workers",
	"addr":          "server.addr",
}

// Load builds a Config. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("load config: bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("load config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Decoding would truncate 2.5 to 2, so counts are checked in raw form first.
	for _, key := range []string{"territories", "days"} {
		n, err := countSetting(v, key)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		v.Set(key, n)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("load config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once, wrapped in ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.Territories < 0 {
		add("territories must be >= 1, got %d", c.Territories)
	}
	if c.Days < 0 {
		add("days must be >= 1, got %d", c.Days)
	}

	switch c.Distance.Provider {
	case "google", "osrm", "ors", "none":
	default:
		add("unknown distance provider %q", c.Distance.Provider)
	}
	if c.Distance.MaxBatch < 1 {
		add("distance.max_batch must be >= 1, got %d", c.Distance.MaxBatch)
	}
	if c.Distance.Retries < 0 {
		add("distance.retries must be >= 0, got %d", c.Distance.Retries)
	}
	if c.Distance.RateInterval < 0 {
		add("distance.rate_interval must not be negative")
	}

	switch c.Cache.Driver {
	case "none", "":
	case "sqlite", "postgres":
		if c.Cache.DSN == "" {
			add("cache.dsn is required for cache driver %q", c.Cache.Driver)
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			add("cache.redis_url is required for cache driver redis")
		}
	default:
		add("unknown cache driver %q", c.Cache.Driver)
	}

	switch c.Plan.Ordering {
	case "latlon", "hilbert", "":
	default:
		add("unknown day ordering %q", c.Plan.Ordering)
	}
	if c.Plan.Workers < 1 {
		add("plan.workers must be >= 1, got %d", c.Plan.Workers)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w: %w", domain.ErrConfiguration, errors.Join(errs...))
}

// ParseCount parses a strictly positive integer count such as a territory
// or day count entered by a user.
func ParseCount(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %q", domain.ErrConfiguration, name, s)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: %s must be >= 1, got %d", domain.ErrConfiguration, name, n)
	}
	return n, nil
}

// countSetting returns 0 when key is unset or 0, and otherwise requires a
// positive whole number.
func countSetting(v *viper.Viper, key string) (int, error) {
	var s string
	switch raw := v.Get(key).(type) {
	case nil:
		return 0, nil
	case float64:
		s = strconv.FormatFloat(raw, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(raw), 'f', -1, 32)
	default:
		s = strings.TrimSpace(v.GetString(key))
	}
	if s == "" || s == "0" {
		return 0, nil
	}
	return ParseCount(key, s)
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
