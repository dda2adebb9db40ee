package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"elliptigraph-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherInertWithoutFlag(t *testing.T) {
	cfg, err := config.NewLoader(t.TempDir(), config.Production).Load()
	require.NoError(t, err)
	require.False(t, cfg.Features.EnableHotReload)

	w, err := config.NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	// Without the feature flag the watcher never reloads; callbacks can
	// still be registered safely.
	w.OnChange(func(*config.Config) { t.Error("unexpected reload") })
	assert.Same(t, cfg, w.GetConfig())
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"),
		[]byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.Features.EnableHotReload)
	require.Equal(t, 9000, cfg.Server.Port)

	w, err := config.NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *config.Config, 1)
	w.OnChange(func(c *config.Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"),
		[]byte("server:\n  port: 9100\n"), 0o644))

	select {
	case c := <-reloaded:
		assert.Equal(t, 9100, c.Server.Port)
		assert.Equal(t, 9100, w.GetConfig().Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration reload was not observed")
	}
}
