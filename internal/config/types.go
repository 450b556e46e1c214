package config

import (
	"fmt"
	"strings"
)

// Config holds every server-level option once the loader resolves the
// documented precedence (env > file > defaults).
type Config struct {
	Server ServerConfig `koanf:"server"`
}

// ServerConfig collects the bootstrap knobs owned by the lifecycle agent.
type ServerConfig struct {
	Listen   ListenConfig   `koanf:"listen"`
	Logging  LoggingConfig  `koanf:"logging"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	AI       AIConfig       `koanf:"ai"`
}

// ListenConfig instructs the HTTP listener about bind address and port.
type ListenConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// LoggingConfig expresses log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CacheConfig selects the stats cache backend. The "none" backend is a
// supported configuration: every lookup misses and every store is a no-op.
type CacheConfig struct {
	Backend    string           `koanf:"backend"`
	TTLSeconds int              `koanf:"ttlSeconds"`
	Redis      RedisCacheConfig `koanf:"redis"`
}

// RedisCacheConfig carries connection settings for the redis backend.
type RedisCacheConfig struct {
	Address  string `koanf:"address"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// DatabaseConfig points at the relational store. An empty URL is not an
// error at load time: the stats path degrades to offline defaults while
// the recommendation path refuses to serve.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AIConfig configures the external ranking model. An empty API key disables
// model-based ranking; the orchestrator then always uses the deterministic
// fallback.
type AIConfig struct {
	APIKey         string `koanf:"apiKey"`
	Model          string `koanf:"model"`
	TimeoutSeconds int    `koanf:"timeoutSeconds"`
}

// DefaultConfig returns the baseline settings applied before file and env
// overrides.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen: ListenConfig{
				Address: "0.0.0.0",
				Port:    8080,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			Cache: CacheConfig{
				Backend:    "memory",
				TTLSeconds: 300,
			},
			AI: AIConfig{
				Model:          "gemini-2.0-flash",
				TimeoutSeconds: 30,
			},
		},
	}
}

// Validate rejects configurations the runtime cannot honor.
func (c Config) Validate() error {
	if c.Server.Listen.Port < 0 || c.Server.Listen.Port > 65535 {
		return fmt.Errorf("config: listen port %d out of range", c.Server.Listen.Port)
	}
	switch strings.ToLower(c.Server.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unsupported log level %q", c.Server.Logging.Level)
	}
	switch strings.ToLower(c.Server.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Server.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Server.Cache.Backend)) {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported cache backend %q", c.Server.Cache.Backend)
	}
	if c.Server.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("config: cache ttlSeconds must be positive, got %d", c.Server.Cache.TTLSeconds)
	}
	if strings.ToLower(strings.TrimSpace(c.Server.Cache.Backend)) == "redis" && strings.TrimSpace(c.Server.Cache.Redis.Address) == "" {
		return fmt.Errorf("config: redis cache backend requires an address")
	}
	if c.Server.AI.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: ai timeoutSeconds must be positive, got %d", c.Server.AI.TimeoutSeconds)
	}
	return nil
}
