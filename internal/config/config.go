package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Push backends for the change feed.
const (
	PushRabbitMQ = "rabbitmq"
	PushPostgres = "postgres"
	PushNone     = "none"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
	Kitchen  KitchenConfig  `yaml:"kitchen"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// NotifyChannel is the LISTEN/NOTIFY channel for order changes.
	NotifyChannel string `yaml:"notify_channel"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FeedConfig struct {
	// Push is one of rabbitmq, postgres or none.
	Push           string        `yaml:"push"`
	KitchenPoll    time.Duration `yaml:"kitchen_poll"`
	AdminPoll      time.Duration `yaml:"admin_poll"`
	StatusPoll     time.Duration `yaml:"status_poll"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type KitchenConfig struct {
	// SessionID identifies this display. Empty means a fresh id per start.
	SessionID string        `yaml:"session_id"`
	AckTTL    time.Duration `yaml:"ack_ttl"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			User:          "foodtruck",
			Database:      "foodtruck",
			NotifyChannel: "order_changes",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
		},
		Feed: FeedConfig{
			Push:           PushRabbitMQ,
			KitchenPoll:    5 * time.Second,
			AdminPoll:      30 * time.Second,
			StatusPoll:     30 * time.Second,
			ReconnectDelay: 5 * time.Second,
		},
		Kitchen: KitchenConfig{
			AckTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, then applies .env and environment
// overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Переменные окружения имеют приоритет над файлом
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Database.Host, "DATABASE_HOST")
	setString(&c.Database.User, "DATABASE_USER")
	setString(&c.Database.Password, "DATABASE_PASSWORD")
	setString(&c.Database.Database, "DATABASE_NAME")
	setString(&c.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&c.RabbitMQ.User, "RABBITMQ_USER")
	setString(&c.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Feed.Push, "FEED_PUSH")
	setString(&c.Kitchen.SessionID, "KITCHEN_SESSION_ID")
	setString(&c.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("DATABASE_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT: %w", err)
		}
		c.Database.Port = n
	}
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RABBITMQ_PORT: %w", err)
		}
		c.RabbitMQ.Port = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Feed.Push {
	case PushRabbitMQ, PushPostgres, PushNone:
	default:
		return fmt.Errorf("feed.push must be one of rabbitmq, postgres, none: got %q", c.Feed.Push)
	}
	if c.Feed.KitchenPoll <= 0 || c.Feed.AdminPoll <= 0 || c.Feed.StatusPoll <= 0 {
		return errors.New("feed poll intervals must be positive")
	}
	if c.Feed.ReconnectDelay <= 0 {
		return errors.New("feed.reconnect_delay must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
