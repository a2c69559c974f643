package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken   string        `envconfig:"TELEGRAM_TOKEN"`
	DatabaseURL     string        `envconfig:"DATABASE_URL" default:"contact_reminder.db"`
	Timezone        string        `envconfig:"TIMEZONE" default:"Europe/Berlin"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	ReminderWorkers int           `envconfig:"REMINDER_WORKERS" default:"4"`
	ReminderTimeout time.Duration `envconfig:"REMINDER_TIMEOUT" default:"30s"`
	ConfigFile      string        `envconfig:"CONFIG_FILE"`

	// Location is resolved from Timezone once during Load.
	Location *time.Location `ignored:"true"`
}

// fileConfig mirrors the keys of the legacy contact_reminder.conf file.
type fileConfig struct {
	BotToken   string `yaml:"bot_token"`
	DBFilename string `yaml:"db_filename"`
	Timezone   string `yaml:"timezone"`
	LogLevel   string `yaml:"log_level"`
}

// Load reads configuration from .env, environment variables and an optional YAML file.
// Environment variables win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	if cfg.ConfigFile != "" {
		if err := cfg.mergeFile(cfg.ConfigFile); err != nil {
			return cfg, err
		}
	}

	if err := cfg.finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}

	fill(&c.TelegramToken, "TELEGRAM_TOKEN", fc.BotToken)
	fill(&c.DatabaseURL, "DATABASE_URL", fc.DBFilename)
	fill(&c.Timezone, "TIMEZONE", fc.Timezone)
	fill(&c.LogLevel, "LOG_LEVEL", fc.LogLevel)
	return nil
}

// fill overrides dst with the file value unless the env variable was set explicitly.
func fill(dst *string, envName, fileValue string) {
	if _, set := os.LookupEnv(envName); set {
		return
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		*dst = v
	}
}

func (c *Config) finalize() error {
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.ReminderWorkers <= 0 {
		c.ReminderWorkers = 1
	}
	if c.ReminderTimeout <= 0 {
		c.ReminderTimeout = 30 * time.Second
	}
	return nil
}
