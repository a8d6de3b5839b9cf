// Package config loads the client and dev server settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	Feed      FeedConfig      `yaml:"feed"`
	Log       LogConfig       `yaml:"log"`
	DevServer DevServerConfig `yaml:"devserver"`
	Wallet    WalletConfig    `yaml:"wallet"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// RequestTimeout bounds every API call, like confirmations included.
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

type FeedConfig struct {
	PageSize int `yaml:"page_size" validate:"min=1,max=100"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type DevServerConfig struct {
	Addr          string `yaml:"addr" validate:"required"`
	Storage       string `yaml:"storage" validate:"oneof=memory postgres"`
	DatabaseURL   string `yaml:"database_url" validate:"required_if=Storage postgres"`
	MigrationsDir string `yaml:"migrations_dir"`
	RedisAddr     string `yaml:"redis_addr"`
}

type WalletConfig struct {
	Address string `yaml:"address"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:3001",
			RequestTimeout: 10 * time.Second,
		},
		Feed: FeedConfig{PageSize: 10},
		Log:  LogConfig{Level: "info", Format: "text"},
		DevServer: DevServerConfig{
			Addr:          ":3001",
			Storage:       "memory",
			MigrationsDir: "migrations",
		},
	}
}

// Load reads defaults, then the YAML file at path (skipped when empty or
// missing), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("DECENTRATWEET_API_URL", &cfg.API.BaseURL)
	set("DATABASE_URL", &cfg.DevServer.DatabaseURL)
	set("STORAGE_TYPE", &cfg.DevServer.Storage)
	set("REDIS_ADDR", &cfg.DevServer.RedisAddr)
	set("WALLET_ADDRESS", &cfg.Wallet.Address)
	set("LOG_LEVEL", &cfg.Log.Level)
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Write stores cfg as YAML at path.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
