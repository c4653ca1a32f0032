package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/medguard-interaction-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/medguard-interaction-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("MEDGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Terminology service defaults
	viper.SetDefault("terminology.base_url", "https://rxnav.nlm.nih.gov")
	viper.SetDefault("terminology.timeout", "3s")
	viper.SetDefault("terminology.rate_limit", 10)
	viper.SetDefault("terminology.max_retries", 2)
	viper.SetDefault("terminology.circuit_breaker.max_requests", 3)
	viper.SetDefault("terminology.circuit_breaker.interval", "10s")
	viper.SetDefault("terminology.circuit_breaker.timeout", "30s")
	viper.SetDefault("terminology.circuit_breaker.failure_threshold", 5)

	// Resolver defaults
	viper.SetDefault("resolver.cache_size", 1000)
	viper.SetDefault("resolver.cache_ttl", "1h")
	viper.SetDefault("resolver.max_concurrency", 8)
	viper.SetDefault("resolver.redis_url", "")
	viper.SetDefault("resolver.redis_ttl", "24h")

	// History defaults
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.sqlite_path", "./data/evaluations.db")
	viper.SetDefault("history.postgres_url", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetTerminologyConfig returns terminology service configuration
func (m *Manager) GetTerminologyConfig() *domain.TerminologyConfig {
	return &m.config.Terminology
}

// GetResolverConfig returns resolver configuration
func (m *Manager) GetResolverConfig() *domain.ResolverConfig {
	return &m.config.Resolver
}

// GetHistoryConfig returns history store configuration
func (m *Manager) GetHistoryConfig() *domain.HistoryConfig {
	return &m.config.History
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate terminology configuration
	if config.Terminology.BaseURL == "" {
		return fmt.Errorf("terminology base URL is required")
	}
	if config.Terminology.Timeout <= 0 {
		return fmt.Errorf("terminology timeout must be positive")
	}

	// Validate resolver configuration
	if config.Resolver.CacheSize <= 0 {
		return fmt.Errorf("resolver cache size must be positive")
	}
	if config.Resolver.MaxConcurrency <= 0 {
		return fmt.Errorf("resolver max concurrency must be positive")
	}

	// Validate history configuration
	if config.History.Enabled {
		switch config.History.Backend {
		case "sqlite":
			if config.History.SQLitePath == "" {
				return fmt.Errorf("sqlite path is required for sqlite history backend")
			}
		case "postgres":
			if config.History.PostgresURL == "" {
				return fmt.Errorf("postgres URL is required for postgres history backend")
			}
		default:
			return fmt.Errorf("invalid history backend: %s", config.History.Backend)
		}
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
