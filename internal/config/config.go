package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains token signing and TOTP configuration
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	TokenTTL   string `yaml:"token_ttl"`
	TOTPIssuer string `yaml:"totp_issuer"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	// Database validation
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Auth validation. The signing secret is required; tokens cannot be
	// issued or verified without it, so startup fails here.
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("auth.token_ttl is invalid: %w", err)
	}
	if c.Auth.TOTPIssuer == "" {
		c.Auth.TOTPIssuer = "shopapi"
	}

	// Logging validation
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}

// GetTokenTTL returns the session token lifetime as time.Duration
func (c *Config) GetTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.TokenTTL)
	return d
}
