// Package config loads Tripper's configuration from an optional YAML file
// and TRIPPER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	Path string
}

// AuthConfig holds session token configuration.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the TRIPPER_ prefix with
// underscores, e.g. TRIPPER_AUTH_JWTSECRET.
func Load(configPath string) (*Config, error) {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("database.path", "./data/tripper.db")
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.tokenttl", "24h")
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("TRIPPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtsecret is required (set TRIPPER_AUTH_JWTSECRET)")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("auth.tokenttl must be positive")
	}

	return &cfg, nil
}
