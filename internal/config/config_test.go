package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://rxnav.nlm.nih.gov", cfg.Terminology.BaseURL)
	assert.Equal(t, 1000, cfg.Resolver.CacheSize)
	assert.Equal(t, 8, cfg.Resolver.MaxConcurrency)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MEDGUARD_SERVER_PORT", "9090")
	t.Setenv("MEDGUARD_LOGGING_LEVEL", "debug")

	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Manager)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(m *Manager) {},
		},
		{
			name: "invalid port",
			mutate: func(m *Manager) {
				m.config.Server.Port = 0
			},
			wantErr: "invalid server port",
		},
		{
			name: "missing terminology URL",
			mutate: func(m *Manager) {
				m.config.Terminology.BaseURL = ""
			},
			wantErr: "terminology base URL is required",
		},
		{
			name: "zero cache size",
			mutate: func(m *Manager) {
				m.config.Resolver.CacheSize = 0
			},
			wantErr: "cache size must be positive",
		},
		{
			name: "unknown history backend",
			mutate: func(m *Manager) {
				m.config.History.Backend = "cassandra"
			},
			wantErr: "invalid history backend",
		},
		{
			name: "postgres backend without URL",
			mutate: func(m *Manager) {
				m.config.History.Backend = "postgres"
				m.config.History.PostgresURL = ""
			},
			wantErr: "postgres URL is required",
		},
		{
			name: "invalid log level",
			mutate: func(m *Manager) {
				m.config.Logging.Level = "verbose"
			},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			manager, err := NewManager()
			require.NoError(t, err)

			tt.mutate(manager)

			err = manager.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
