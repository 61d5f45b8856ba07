// Package config loads service configuration from built-in defaults, an
// optional YAML file and CARVIEWER_* environment variables, in that order of
// precedence, and validates the result.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: CARVIEWER_UPSTREAM__BASE_URL sets upstream.base_url.
const EnvPrefix = "CARVIEWER_"

// PathEnvVar names an explicit config file.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched when PathEnvVar is unset.
var DefaultPaths = []string{"config.yaml", "/etc/carviewer/config.yaml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	NATS     NATSConfig     `koanf:"nats"`
	Neo4j    Neo4jConfig    `koanf:"neo4j"`
	Qdrant   QdrantConfig   `koanf:"qdrant"`
	Session  SessionConfig  `koanf:"session"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigin      string        `koanf:"cors_origin" validate:"required"`
	// RequestsPerMinute is the per-client limit; 0 disables it.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"gte=0"`
}

// UpstreamConfig selects and tunes the catalog source.
type UpstreamConfig struct {
	// Mode is http, nats or static.
	Mode             string        `koanf:"mode" validate:"oneof=http nats static"`
	BaseURL          string        `koanf:"base_url" validate:"required_if=Mode http,omitempty,url"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	Retries          int           `koanf:"retries" validate:"gte=1,lte=10"`
	RateLimit        float64       `koanf:"rate_limit" validate:"gte=0"`
	Burst            int           `koanf:"burst" validate:"gte=1"`
	BreakerThreshold int           `koanf:"breaker_threshold" validate:"gte=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

type NATSConfig struct {
	URL string `koanf:"url"`
	// Embedded starts an in-process server instead of dialing URL.
	Embedded bool `koanf:"embedded"`
	Port     int  `koanf:"port"`
}

type Neo4jConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URI      string `koanf:"uri" validate:"required_if=Enabled true"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

type QdrantConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Addr       string `koanf:"addr" validate:"required_if=Enabled true"`
	Collection string `koanf:"collection" validate:"required"`
}

type SessionConfig struct {
	CookieName   string        `koanf:"cookie_name" validate:"required"`
	CookieSecure bool          `koanf:"cookie_secure"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"gt=0"`
}

type CatalogConfig struct {
	// SeedFile is a catalog JSON document; empty uses the built-in catalog.
	SeedFile  string `koanf:"seed_file"`
	ImagesDir string `koanf:"images_dir"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ShutdownTimeout:   10 * time.Second,
			CORSOrigin:        "*",
			RequestsPerMinute: 120,
		},
		Upstream: UpstreamConfig{
			Mode:             "http",
			BaseURL:          "http://localhost:8081",
			Timeout:          10 * time.Second,
			Retries:          3,
			RateLimit:        50,
			Burst:            10,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		NATS:    NATSConfig{URL: "nats://localhost:4222"},
		Neo4j:   Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j", Database: "neo4j"},
		Qdrant:  QdrantConfig{Addr: "localhost:6334", Collection: "car_specs"},
		Session: SessionConfig{CookieName: "cv_session", IdleTimeout: 30 * time.Minute},
		Catalog: CatalogConfig{ImagesDir: "./images"},
		Log:     LogConfig{Level: "info"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Load layers defaults, the config file and the environment.
func Load() (Config, error) {
	return LoadFile(findFile())
}

// LoadFile is Load with an explicit file path; "" skips the file layer.
func LoadFile(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// envKey maps CARVIEWER_UPSTREAM__BASE_URL to upstream.base_url.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Logger returns the JSON logger every command writes to stdout.
func (c LogConfig) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
