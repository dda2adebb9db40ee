// This file implements hot reloading of configuration in development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the configuration directory and hot reloads changes.
// This is primarily used in development environments for faster iteration.
type Watcher struct {
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a configuration watcher. Watching is only armed when
// the hot-reload feature flag is set; otherwise the watcher is inert and
// GetConfig simply returns the initial configuration.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		config:    initial,
		callbacks: make([]func(*Config), 0),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	if !initial.Features.EnableHotReload {
		logger.Info("Configuration hot reloading disabled",
			zap.String("environment", string(initial.Environment)),
		)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsWatcher

	if err := w.watchConfigFiles(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config files: %w", err)
	}

	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled",
		zap.String("environment", string(initial.Environment)),
	)
	return w, nil
}

// watchConfigFiles adds the configuration directory to the watcher.
func (w *Watcher) watchConfigFiles() error {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() || isConfigFile(path) {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("Failed to watch file",
					zap.String("path", path),
					zap.Error(err),
				)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk config directory: %w", err)
	}
	return nil
}

// watchLoop monitors for file changes and triggers reloads.
func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	// Debounce timer to avoid multiple rapid reloads
	var debounceTimer *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isConfigFile(event.Name) {
				w.logger.Info("Configuration file changed",
					zap.String("file", event.Name),
					zap.String("operation", event.Op.String()),
				)
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("Stopping configuration watcher")
			return
		}
	}
}

// reload re-runs the full loader and notifies callbacks on success.
func (w *Watcher) reload() {
	newConfig, err := LoadConfig()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.config = newConfig
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(newConfig)
	}

	w.logger.Info("Configuration reloaded",
		zap.Int("callbacks_notified", len(callbacks)),
	)
}

// OnChange registers a callback invoked whenever configuration changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// GetConfig returns the current configuration.
func (w *Watcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the configuration watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// isConfigFile reports whether path looks like a configuration file.
func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
