package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/reconcile"
)

// Config holds all configuration for the assistant frontend
type Config struct {
	Server    ServerConfig           `mapstructure:"server"`
	Backend   BackendConfig          `mapstructure:"backend"`
	Reconcile ReconcileConfig        `mapstructure:"reconcile"`
	Poll      reconcile.PollConfig   `mapstructure:"poll"`
	Stream    reconcile.StreamConfig `mapstructure:"stream"`
	Cache     CacheConfig            `mapstructure:"cache"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	APIKey       string   `mapstructure:"api_key"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// BackendConfig holds backend chat API configuration
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReconcileConfig selects how replies are awaited
type ReconcileConfig struct {
	Strategy string `mapstructure:"strategy"` // poll or stream
}

// CacheConfig holds conversation cache configuration
type CacheConfig struct {
	Driver        string        `mapstructure:"driver"` // memory or sqlite
	Path          string        `mapstructure:"path"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FRONTEND")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", "30s")

	v.SetDefault("reconcile.strategy", "stream")

	v.SetDefault("poll.base_interval", "1000ms")
	v.SetDefault("poll.multiplier", 1.1)
	v.SetDefault("poll.max_interval", "10000ms")
	v.SetDefault("poll.max_attempts", 14)
	v.SetDefault("poll.total_timeout", "29000ms")

	v.SetDefault("stream.timeout", "120s")
	v.SetDefault("stream.keepalive_timeout", "90s")
	v.SetDefault("stream.keepalive_check_interval", "10s")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.path", "./data/cache.db")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.sweep_interval", "5m")
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
