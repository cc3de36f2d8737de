// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации витрины.
// Пустые DatabaseURI и SQLitePath означают хранилище в памяти, пустой RemoteSinkAddress включает демо-режим.
type Config struct {
	RunAddress            string   `env:"RUN_ADDRESS"`
	DatabaseURI           string   `env:"DATABASE_URI"`
	SQLitePath            string   `env:"SQLITE_PATH"`
	RemoteSinkAddress     string   `env:"REMOTE_SINK_ADDRESS"`
	TrackingSystemAddress string   `env:"TRACKING_SYSTEM_ADDRESS"`
	AuthSecret            string   `env:"AUTH_SECRET"`
	AdminEmails           []string `env:"ADMIN_EMAILS" envSeparator:"," envDefault:"admin@foodieexpress.com,admin@test.com,test@admin.com"`
}

// RemoteEnabled сообщает, настроено ли удалённое зеркало корзин и заказов.
func (c *Config) RemoteEnabled() bool {
	return c.RemoteSinkAddress != ""
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// Файл .env необязателен.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "postgres URI for the key-value store")
	flag.StringVar(&cfg.SQLitePath, "s", "", "sqlite file for the key-value store")
	flag.StringVar(&cfg.RemoteSinkAddress, "r", "", "redis address of the remote cart and order sink")
	flag.StringVar(&cfg.TrackingSystemAddress, "t", "", "order tracking system address")
	flag.StringVar(&cfg.AuthSecret, "k", "", "secret key for auth cookies")

	flag.Parse()

	override(&cfg.RunAddress, envCfg.RunAddress)
	override(&cfg.DatabaseURI, envCfg.DatabaseURI)
	override(&cfg.SQLitePath, envCfg.SQLitePath)
	override(&cfg.RemoteSinkAddress, envCfg.RemoteSinkAddress)
	override(&cfg.TrackingSystemAddress, envCfg.TrackingSystemAddress)
	override(&cfg.AuthSecret, envCfg.AuthSecret)

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

func override(dst *string, fromEnv string) {
	if fromEnv != "" {
		*dst = fromEnv
	}
}
