package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"elliptigraph-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig tests basic configuration loading from environment variables.
func TestLoadConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ARANGO_DATABASE", "elliptic_test")
	t.Setenv("CONFIG_DIR", t.TempDir())

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "elliptic_test", cfg.Arango.Database)
	assert.Contains(t, cfg.LoadedFrom, "defaults")
}

// TestLoaderFileHierarchy verifies that environment overlay files override
// the base file, and environment variables override both.
func TestLoaderFileHierarchy(t *testing.T) {
	dir := t.TempDir()

	base := []byte("server:\n  port: 7000\narango:\n  database: from_base\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), base, 0o644))

	overlay := []byte("arango:\n  database: from_overlay\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "production.yaml"), overlay, 0o644))

	t.Setenv("SERVER_HOST", "10.0.0.1")

	cfg, err := config.NewLoader(dir, config.Production).Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from_overlay", cfg.Arango.Database)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.False(t, cfg.Features.EnableHotReload)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *config.Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(c *config.Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "missing arango endpoint",
			mutate:  func(c *config.Config) { c.Arango.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "negative read timeout",
			mutate:  func(c *config.Config) { c.Server.ReadTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "bad environment",
			mutate:  func(c *config.Config) { c.Environment = "qa" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewLoader(t.TempDir(), config.Development).Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
