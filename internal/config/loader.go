package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a hierarchy of sources.
//
// The loading order (from lowest to highest priority):
//  1. Default values (in code)
//  2. Base configuration file (base.yaml)
//  3. Environment-specific file (e.g. production.yaml)
//  4. Environment variables (highest priority)
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
}

// NewLoader creates a configuration loader rooted at basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
	}
}

// Load builds the effective configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := defaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	path := filepath.Join(l.basePath, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

// loadEnvironmentVariables applies environment variable overrides.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ARANGO_ENDPOINT"); v != "" {
		cfg.Arango.Endpoint = v
	}
	if v := os.Getenv("ARANGO_USERNAME"); v != "" {
		cfg.Arango.Username = v
	}
	if v := os.Getenv("ARANGO_PASSWORD"); v != "" {
		cfg.Arango.Password = v
	}
	if v := os.Getenv("ARANGO_DATABASE"); v != "" {
		cfg.Arango.Database = v
	}
	if v := os.Getenv("DATASET_DIR"); v != "" {
		cfg.Dataset.Dir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Dataset.OutputDir = v
	}
	if v := os.Getenv("INGEST_STEP_SLEEP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ingest.StepSleep = d
		}
	}
	if v := os.Getenv("INGEST_SAMPLE_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.SampleSteps = n
		}
	}
	if v := os.Getenv("ENABLE_METRICS"); v != "" {
		cfg.Features.EnableMetrics = v == "true"
	}
	if v := os.Getenv("ENABLE_CHARTS"); v != "" {
		cfg.Features.EnableCharts = v == "true"
	}
}

// LoadConfig loads configuration using the ENVIRONMENT and CONFIG_DIR
// environment variables to select the environment overlay.
func LoadConfig() (*Config, error) {
	env := Environment(strings.ToLower(os.Getenv("ENVIRONMENT")))
	switch env {
	case Development, Staging, Production:
	default:
		env = Development
	}
	return NewLoader(os.Getenv("CONFIG_DIR"), env).Load()
}

// defaultConfig returns the built-in defaults, mirroring the local
// docker-compose style deployment (ArangoDB on localhost:8529).
func defaultConfig(env Environment) *Config {
	return &Config{
		Environment: env,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8050,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Arango: Arango{
			Endpoint:           "http://localhost:8529",
			Username:           "root",
			Password:           "root",
			Database:           "elliptic_graph",
			BreakerMaxRequests: 5,
			BreakerInterval:    30 * time.Second,
			BreakerTimeout:     60 * time.Second,
		},
		Dataset: Dataset{
			Dir:       "./dataset",
			OutputDir: "./output",
			ChartsDir: "./output/plots",
		},
		Ingest: Ingest{
			StepSleep:     50 * time.Millisecond,
			SampleSteps:   0,
			ProgressEvery: 5,
		},
		Query: Query{
			DefaultTimeStep:  10,
			DefaultMinDegree: 5,
			ResultLimit:      100,
		},
		Features: Features{
			EnableMetrics:   true,
			EnableCharts:    true,
			EnableHotReload: env == Development,
		},
	}
}
