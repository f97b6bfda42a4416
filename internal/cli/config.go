package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ServeConfig holds the served-mode configuration, read from an
// optional signalbox.yaml plus SIGNALBOX_* environment variables.
type ServeConfig struct {
	// Port is the HTTP listen port.
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`

	// LogLevel controls the server logger (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// Store selects the session backend.
	Store ServeStoreConfig `mapstructure:"store"`
}

// ServeStoreConfig holds the snapshot store configuration.
type ServeStoreConfig struct {
	Kind string `mapstructure:"kind" validate:"oneof=memory redis sqlite"`

	// LockTTL bounds how long a crashed replica can hold a session.
	LockTTL time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`

	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// SQLiteConfig holds the SQLite settings.
type SQLiteConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// StoreOptions converts the config into the shape openStore expects.
func (c ServeStoreConfig) StoreOptions() StoreOptions {
	return StoreOptions{
		Kind:          c.Kind,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		SQLitePath:    c.SQLite.Path,
	}
}

// LoadServeConfig reads the serve configuration. An explicit path must
// exist; otherwise a signalbox.yaml in the working directory is used
// when present and defaults apply when it is not.
func LoadServeConfig(path string) (*ServeConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("store.kind", "memory")
	v.SetDefault("store.lock_ttl", "30s")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.sqlite.path", defaultSQLitePath)

	v.SetEnvPrefix("SIGNALBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("signalbox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// Only fail when a config file exists but is unreadable.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg ServeConfig
	// ErrorUnused turns misspelled keys into errors instead of silently
	// applied defaults.
	strict := func(dc *mapstructure.DecoderConfig) { dc.ErrorUnused = true }
	if err := v.Unmarshal(&cfg, strict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// defaultSQLitePath mirrors where the run command keeps durable
// sessions, so CLI and server share a backend out of the box.
const defaultSQLitePath = ".signalbox/sessions.db"
