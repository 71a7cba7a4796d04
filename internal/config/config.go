// Package config loads netmon settings from netmon.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverDuckDB = "duckdb"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Retention RetentionConfig `mapstructure:"retention"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Query     QueryConfig     `mapstructure:"query"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps ingestion request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type StorageConfig struct {
	Driver string       `mapstructure:"driver"`
	DuckDB DuckDBConfig `mapstructure:"duckdb"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
}

type DuckDBConfig struct {
	// Path is the database file; empty means in-memory.
	Path        string        `mapstructure:"path"`
	Threads     int           `mapstructure:"threads"`
	MemoryLimit string        `mapstructure:"memory_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type MongoConfig struct {
	URL               string        `mapstructure:"url"`
	Database          string        `mapstructure:"database"`
	MetricsCollection string        `mapstructure:"metrics_collection"`
	EventsCollection  string        `mapstructure:"events_collection"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Enabled reports whether a graph is configured.
func (c Neo4jConfig) Enabled() bool { return c.URI != "" }

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

func (c GeminiConfig) Enabled() bool { return c.APIKey != "" }

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type RetentionConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Interval            time.Duration `mapstructure:"interval"`
	KeepDays            int           `mapstructure:"keep_days"`
	MinRecordsPerDevice int           `mapstructure:"min_records_per_device"`
}

type ProbeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
	HostID   string        `mapstructure:"hostid"`
	DeviceID string        `mapstructure:"device_id"`
	Location string        `mapstructure:"location"`
}

// QueryConfig holds the listing defaults and caps of the HTTP API.
type QueryConfig struct {
	DefaultLimit       int `mapstructure:"default_limit"`
	MaxLimit           int `mapstructure:"max_limit"`
	TroubleshootMax    int `mapstructure:"troubleshoot_max"`
	WindowHours        int `mapstructure:"window_hours"`
	InterfaceLimit     int `mapstructure:"interface_limit"`
	MetricsSeriesLimit int `mapstructure:"metrics_series_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Storage: StorageConfig{
			Driver: DriverDuckDB,
			DuckDB: DuckDBConfig{
				Path:        "netmon.duckdb",
				Threads:     4,
				MemoryLimit: "1GB",
				Timeout:     30 * time.Second,
			},
			Mongo: MongoConfig{
				URL:               "mongodb://localhost:27017",
				Database:          "netmon",
				MetricsCollection: "metrics_ts",
				EventsCollection:  "events",
				Timeout:           10 * time.Second,
			},
		},
		Neo4j: Neo4jConfig{
			User:     "neo4j",
			Database: "neo4j",
		},
		Gemini: GeminiConfig{Model: "flash-2"},
		Auth:   AuthConfig{Issuer: "netmon"},
		Redis:  RedisConfig{IdempotencyTTL: 24 * time.Hour},
		Retention: RetentionConfig{
			Interval:            6 * time.Hour,
			KeepDays:            7,
			MinRecordsPerDevice: 100,
		},
		Probe: ProbeConfig{
			Interval: 30 * time.Second,
			Timeout:  10 * time.Second,
			Location: "Unknown Location",
		},
		Query: QueryConfig{
			DefaultLimit:       100,
			MaxLimit:           1000,
			TroubleshootMax:    500,
			WindowHours:        24,
			InterfaceLimit:     1000,
			MetricsSeriesLimit: 1000,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// legacyEnv maps the environment names the monitoring agent already uses.
var legacyEnv = map[string]string{
	"storage.mongo.url":                "MONGO_URL",
	"storage.mongo.database":           "DB_NAME",
	"storage.mongo.metrics_collection": "METRICS_COLL",
	"storage.mongo.events_collection":  "EVENTS_COLL",
	"gemini.api_key":                   "GEMINI_API_KEY",
}

// Load reads netmon.yaml from path (or the standard search paths when path
// is empty), applies NETMON_* and legacy environment overrides, and
// validates the result. A missing config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netmon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/netmon")
	}

	v.SetEnvPrefix("NETMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "NETMON_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every leaf of d so AutomaticEnv can override keys
// that the config file never mentions.
func setDefaults(v *viper.Viper, d Config) {
	defaults := map[string]any{
		"server.addr":             d.Server.Addr,
		"server.read_timeout":     d.Server.ReadTimeout,
		"server.write_timeout":    d.Server.WriteTimeout,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,
		"server.max_body_bytes":   d.Server.MaxBodyBytes,

		"storage.driver":                   d.Storage.Driver,
		"storage.duckdb.path":              d.Storage.DuckDB.Path,
		"storage.duckdb.threads":           d.Storage.DuckDB.Threads,
		"storage.duckdb.memory_limit":      d.Storage.DuckDB.MemoryLimit,
		"storage.duckdb.timeout":           d.Storage.DuckDB.Timeout,
		"storage.mongo.url":                d.Storage.Mongo.URL,
		"storage.mongo.database":           d.Storage.Mongo.Database,
		"storage.mongo.metrics_collection": d.Storage.Mongo.MetricsCollection,
		"storage.mongo.events_collection":  d.Storage.Mongo.EventsCollection,
		"storage.mongo.timeout":            d.Storage.Mongo.Timeout,

		"neo4j.uri":      d.Neo4j.URI,
		"neo4j.user":     d.Neo4j.User,
		"neo4j.password": d.Neo4j.Password,
		"neo4j.database": d.Neo4j.Database,

		"gemini.api_key": d.Gemini.APIKey,
		"gemini.model":   d.Gemini.Model,

		"auth.jwt_secret": d.Auth.JWTSecret,
		"auth.issuer":     d.Auth.Issuer,

		"redis.addr":            d.Redis.Addr,
		"redis.password":        d.Redis.Password,
		"redis.db":              d.Redis.DB,
		"redis.idempotency_ttl": d.Redis.IdempotencyTTL,

		"retention.enabled":                d.Retention.Enabled,
		"retention.interval":               d.Retention.Interval,
		"retention.keep_days":              d.Retention.KeepDays,
		"retention.min_records_per_device": d.Retention.MinRecordsPerDevice,

		"probe.enabled":   d.Probe.Enabled,
		"probe.interval":  d.Probe.Interval,
		"probe.timeout":   d.Probe.Timeout,
		"probe.hostid":    d.Probe.HostID,
		"probe.device_id": d.Probe.DeviceID,
		"probe.location":  d.Probe.Location,

		"query.default_limit":        d.Query.DefaultLimit,
		"query.max_limit":            d.Query.MaxLimit,
		"query.troubleshoot_max":     d.Query.TroubleshootMax,
		"query.window_hours":         d.Query.WindowHours,
		"query.interface_limit":      d.Query.InterfaceLimit,
		"query.metrics_series_limit": d.Query.MetricsSeriesLimit,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Validate checks the configuration and returns a *ConfigError for the
// first invalid field.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverDuckDB, DriverMongo, DriverMemory:
	default:
		return &ConfigError{Field: "storage.driver", Message: "must be duckdb, mongo or memory"}
	}
	if c.Storage.Driver == DriverMongo && c.Storage.Mongo.URL == "" {
		return &ConfigError{Field: "storage.mongo.url", Message: "must not be empty"}
	}
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "must not be empty"}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return &ConfigError{Field: "server.max_body_bytes", Message: "must be positive"}
	}
	if c.Retention.KeepDays < 0 {
		return &ConfigError{Field: "retention.keep_days", Message: "must not be negative"}
	}
	if c.Retention.MinRecordsPerDevice < 0 {
		return &ConfigError{Field: "retention.min_records_per_device", Message: "must not be negative"}
	}
	if c.Retention.Enabled && c.Retention.Interval <= 0 {
		return &ConfigError{Field: "retention.interval", Message: "must be positive"}
	}
	if c.Probe.Enabled && c.Probe.Interval <= 0 {
		return &ConfigError{Field: "probe.interval", Message: "must be positive"}
	}
	if c.Query.DefaultLimit <= 0 || c.Query.MaxLimit < c.Query.DefaultLimit {
		return &ConfigError{Field: "query.max_limit", Message: "must be at least query.default_limit"}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "log.format", Message: "must be text or json"}
	}
	return nil
}

// WithDriver returns a copy of the config using the given storage driver.
func (c Config) WithDriver(driver string) Config {
	c.Storage.Driver = driver
	return c
}

// WithJWTSecret returns a copy of the config with the admin token secret set.
func (c Config) WithJWTSecret(secret string) Config {
	c.Auth.JWTSecret = secret
	return c
}

// WithRetention returns a copy of the config with background pruning set.
func (c Config) WithRetention(enabled bool, interval time.Duration) Config {
	c.Retention.Enabled = enabled
	c.Retention.Interval = interval
	return c
}

// WithProbe returns a copy of the config with the host probe set.
func (c Config) WithProbe(enabled bool, interval time.Duration) Config {
	c.Probe.Enabled = enabled
	c.Probe.Interval = interval
	return c
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
