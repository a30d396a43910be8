package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	if listenAddr := os.Getenv("SHOP_LISTEN_ADDR"); listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	if dbPath := os.Getenv("SHOP_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if secret := os.Getenv("SHOP_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	// Validate again after env overrides
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}
