// Package config handles configuration loading and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the project config file looked up when no path is given.
const DefaultFile = "taskvault.toml"

// Default values.
const (
	DefaultAddr        = ":8080"
	DefaultDriver      = "sqlite"
	DefaultDBPath      = "taskvault.db"
	DefaultRedisAddr   = "localhost:6379"
	DefaultTokenTTLMin = 60
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Config holds the full configuration for taskvault.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type StorageConfig struct {
	// Driver selects the backend: memory, sqlite, or postgres. The
	// postgres driver stores users in Postgres and the task slot in Redis.
	Driver    string `toml:"driver"`
	Path      string `toml:"path"`
	DSN       string `toml:"dsn"`
	RedisAddr string `toml:"redis_addr"`
	// SlotKey overrides the storage key of the task list slot.
	SlotKey string `toml:"slot_key"`
}

type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Timestamps bool   `toml:"timestamps"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Storage: StorageConfig{
			Driver:    DefaultDriver,
			Path:      DefaultDBPath,
			RedisAddr: DefaultRedisAddr,
		},
		Auth: AuthConfig{TokenTTLMinutes: DefaultTokenTTLMin},
		Log:  LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat, Timestamps: true},
	}
}

// Load reads the config file at path (or DefaultFile when path is empty
// and it exists), then applies TASKVAULT_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "TASKVAULT_ADDR")
	setString(&cfg.Storage.Driver, "TASKVAULT_STORAGE_DRIVER")
	setString(&cfg.Storage.Path, "TASKVAULT_DB_PATH")
	setString(&cfg.Storage.DSN, "TASKVAULT_DSN")
	setString(&cfg.Storage.RedisAddr, "TASKVAULT_REDIS_ADDR")
	setString(&cfg.Storage.SlotKey, "TASKVAULT_SLOT_KEY")
	setString(&cfg.Auth.JWTSecret, "TASKVAULT_JWT_SECRET")
	setInt(&cfg.Auth.TokenTTLMinutes, "TASKVAULT_TOKEN_TTL_MINUTES")
	setString(&cfg.Log.Level, "TASKVAULT_LOG_LEVEL")
	setString(&cfg.Log.Format, "TASKVAULT_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate rejects impossible storage combinations early, so failures
// surface at startup rather than on first use.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
