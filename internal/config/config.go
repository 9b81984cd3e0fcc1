// Package config содержит логику чтения конфигурации сервиса и клиента.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса маркетплейса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию сервиса из флагов командной строки и
// переменных окружения. Переменные окружения имеют приоритет.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8000", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for access tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8000"
	}

	return cfg, nil
}

// ClientConfig содержит параметры конфигурации клиента маркетплейса.
type ClientConfig struct {
	ServerAddress string `env:"MARKET_ADDRESS"`
	TokenFile     string `env:"MARKET_TOKEN_FILE"`
}

// ParseClient считывает конфигурацию клиента из флагов командной строки и
// переменных окружения. Переменные окружения имеют приоритет.
func ParseClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envServerAddress := cfg.ServerAddress
	envTokenFile := cfg.TokenFile

	flag.StringVar(&cfg.ServerAddress, "r", "localhost:8000", "marketplace server address")
	flag.StringVar(&cfg.TokenFile, "t", "", "path to the access token file")

	flag.Parse()

	if envServerAddress != "" {
		cfg.ServerAddress = envServerAddress
	}
	if envTokenFile != "" {
		cfg.TokenFile = envTokenFile
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = "localhost:8000"
	}

	return cfg, nil
}
