// Package config loads taskboard settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers understood by the serve command.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

type BoardConfig struct {
	Step int `yaml:"step"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Board    BoardConfig    `yaml:"board"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: DriverSQLite, URL: "./data/taskboard.db"},
		Redis:    RedisConfig{TTL: 5 * time.Minute},
		Board:    BoardConfig{Step: 10},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, then applies TASKBOARD_* environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		// An empty file decodes to io.EOF and leaves the defaults in place.
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("TASKBOARD_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TASKBOARD_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	c.Database.Driver = getEnv("TASKBOARD_DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("TASKBOARD_DB_URL", c.Database.URL)
	c.Redis.URL = getEnv("TASKBOARD_REDIS_URL", c.Redis.URL)
	c.Log.Level = getEnv("TASKBOARD_LOG_LEVEL", c.Log.Level)
	return nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for driver %s", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be 'sqlite', 'postgres', or 'memory', got %q", c.Database.Driver)
	}

	if c.Board.Step < 2 {
		return errors.New("board.step must be at least 2")
	}

	if c.Redis.TTL < 0 {
		return errors.New("redis.ttl must not be negative")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
