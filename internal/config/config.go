// Package config loads trainbot settings from defaults, an optional TOML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Netflix/go-env"
	"github.com/Shivanand-hulikatti/trainbot/internal/database"
	"github.com/joho/godotenv"
)

// EnvConfigFile names the optional TOML file to read before the environment.
const EnvConfigFile = "TRAINBOT_CONFIG"

type Config struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT"`
	LogLevel        string        `env:"LOG_LEVEL"`
	SlackWebhookURL string        `env:"SLACK_WEBHOOK_URL"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT"`
	TickInterval    time.Duration `env:"TICK_INTERVAL"`
	MaxMinutes      int           `env:"MAX_MINUTES"`
	HistoryEnabled  bool          `env:"HISTORY_ENABLED"`
	DBHost          string        `env:"DB_HOST"`
	DBPort          string        `env:"DB_PORT"`
	DBUser          string        `env:"DB_USER"`
	DBPassword      string        `env:"DB_PASSWORD"`
	DBName          string        `env:"DB_NAME"`
	DBSSLMode       string        `env:"DB_SSLMODE"`
}

type fileConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	LogLevel        string `toml:"log_level"`
	SlackWebhookURL string `toml:"slack_webhook_url"`
	NotifyTimeout   string `toml:"notify_timeout"`
	TickInterval    string `toml:"tick_interval"`
	MaxMinutes      int    `toml:"max_minutes"`
	History         struct {
		Enabled  bool   `toml:"enabled"`
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
		SSLMode  string `toml:"sslmode"`
	} `toml:"history"`
}

func Default() Config {
	return Config{
		Host:          "",
		Port:          8080,
		LogLevel:      "INFO",
		NotifyTimeout: 10 * time.Second,
		TickInterval:  time.Second,
		MaxMinutes:    24 * 60,
		DBHost:        "localhost",
		DBPort:        "5432",
		DBUser:        "postgres",
		DBPassword:    "postgres",
		DBName:        "trainbot",
		DBSSLMode:     "disable",
	}
}

// Load reads .env (if present), then the TOML file named by TRAINBOT_CONFIG
// (if set), then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := applyFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("slack_webhook_url") {
		cfg.SlackWebhookURL = strings.TrimSpace(raw.SlackWebhookURL)
	}
	if meta.IsDefined("notify_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.NotifyTimeout))
		if err != nil {
			return fmt.Errorf("parse notify_timeout: %w", err)
		}
		cfg.NotifyTimeout = d
	}
	if meta.IsDefined("tick_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TickInterval))
		if err != nil {
			return fmt.Errorf("parse tick_interval: %w", err)
		}
		cfg.TickInterval = d
	}
	if meta.IsDefined("max_minutes") {
		cfg.MaxMinutes = raw.MaxMinutes
	}

	if meta.IsDefined("history", "enabled") {
		cfg.HistoryEnabled = raw.History.Enabled
	}
	if meta.IsDefined("history", "host") {
		cfg.DBHost = raw.History.Host
	}
	if meta.IsDefined("history", "port") {
		cfg.DBPort = raw.History.Port
	}
	if meta.IsDefined("history", "user") {
		cfg.DBUser = raw.History.User
	}
	if meta.IsDefined("history", "password") {
		cfg.DBPassword = raw.History.Password
	}
	if meta.IsDefined("history", "name") {
		cfg.DBName = raw.History.Name
	}
	if meta.IsDefined("history", "sslmode") {
		cfg.DBSSLMode = raw.History.SSLMode
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.MaxMinutes <= 0 {
		errs = append(errs, fmt.Errorf("max minutes must be positive, got %d", c.MaxMinutes))
	}
	if c.SlackWebhookURL != "" {
		if u, err := url.Parse(c.SlackWebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid slack webhook url %q", c.SlackWebhookURL))
		}
	}
	return errors.Join(errs...)
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Database() database.Config {
	return database.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}
