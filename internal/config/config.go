package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"plantdoc/internal/export"
	"plantdoc/internal/gateway"

	"gopkg.in/yaml.v3"
)

// GatewayConfig points at the remote plant-care backend
type GatewayConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Timeout   time.Duration     `yaml:"timeout"`
	Endpoints gateway.Endpoints `yaml:"endpoints"`
}

// Config holds every setting the server and CLI read at startup
type Config struct {
	HTTPPort        string         `yaml:"http_port"`
	MongoURI        string         `yaml:"mongo_uri"`
	MongoDatabase   string         `yaml:"mongo_database"`
	RedisAddr       string         `yaml:"redis_addr"`
	JWTSecret       string         `yaml:"-"`
	CORSOrigins     string         `yaml:"cors_origins"`
	TransitionDelay time.Duration  `yaml:"transition_delay"`
	SessionTTL      time.Duration  `yaml:"session_ttl"`
	LogLevel        string         `yaml:"log_level"`
	LogDevelopment  bool           `yaml:"log_development"`
	Gateway         GatewayConfig  `yaml:"gateway"`
	Export          export.Options `yaml:"export"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		HTTPPort:        "8080",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "plantdoc",
		RedisAddr:       "localhost:6379",
		CORSOrigins:     "*",
		TransitionDelay: 300 * time.Millisecond,
		SessionTTL:      24 * time.Hour,
		LogLevel:        "info",
		Gateway: GatewayConfig{
			BaseURL:   "http://localhost:3000/api",
			Timeout:   30 * time.Second,
			Endpoints: gateway.DefaultEndpoints(),
		},
		Export: export.DefaultOptions(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
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
	c.HTTPPort = getEnv("PORT", c.HTTPPort)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.RedisAddr = strings.TrimPrefix(getEnv("REDIS_URI", c.RedisAddr), "redis://")
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.CORSOrigins)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Gateway.BaseURL = getEnv("GATEWAY_URL", c.Gateway.BaseURL)

	var err error
	if c.LogDevelopment, err = getBool("LOG_DEVELOPMENT", c.LogDevelopment); err != nil {
		return err
	}
	if c.Gateway.Timeout, err = getDuration("GATEWAY_TIMEOUT", c.Gateway.Timeout); err != nil {
		return err
	}
	if c.TransitionDelay, err = getDuration("TRANSITION_DELAY", c.TransitionDelay); err != nil {
		return err
	}
	if c.SessionTTL, err = getDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	return nil
}

// Validate reports the first setting the server cannot start with
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Gateway.BaseURL) == "":
		return errors.New("config: gateway base url is required")
	case c.Gateway.Timeout <= 0:
		return errors.New("config: gateway timeout must be positive")
	case c.TransitionDelay < 0:
		return errors.New("config: transition delay must not be negative")
	case c.SessionTTL < 0:
		return errors.New("config: session ttl must not be negative")
	case c.HTTPPort == "":
		return errors.New("config: http port is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
