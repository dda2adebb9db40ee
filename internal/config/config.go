// Package config provides configuration management for the ElliptiGraph backend.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration for the service.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	Server      Server      `yaml:"server"`
	Arango      Arango      `yaml:"arango"`
	Dataset     Dataset     `yaml:"dataset"`
	Ingest      Ingest      `yaml:"ingest"`
	Query       Query       `yaml:"query"`
	Features    Features    `yaml:"features"`

	// LoadedFrom tracks which sources contributed to this configuration.
	LoadedFrom []string `yaml:"-"`
}

// Server holds HTTP server settings.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns the listen address in host:port form.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Arango holds graph store connection settings.
type Arango struct {
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`

	// Circuit breaker settings for store calls.
	BreakerMaxRequests uint32        `yaml:"breaker_max_requests"`
	BreakerInterval    time.Duration `yaml:"breaker_interval"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
}

// Dataset holds dataset and output locations.
type Dataset struct {
	Dir       string `yaml:"dir" validate:"required"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	ChartsDir string `yaml:"charts_dir"`
}

// Ingest controls the streaming ingestion loop.
type Ingest struct {
	// StepSleep is the pause between time-step batches, simulating a
	// live transaction stream.
	StepSleep time.Duration `yaml:"step_sleep"`

	// SampleSteps limits ingestion to the first N time steps; 0 means all.
	SampleSteps int `yaml:"sample_steps" validate:"gte=0"`

	// ProgressEvery controls how often step progress is logged.
	ProgressEvery int `yaml:"progress_every" validate:"gte=1"`
}

// Query holds defaults for the parameterized query catalog.
type Query struct {
	DefaultTimeStep  int `yaml:"default_time_step" validate:"gte=0"`
	DefaultMinDegree int `yaml:"default_min_degree" validate:"gte=0"`
	ResultLimit      int `yaml:"result_limit" validate:"gt=0"`
}

// Features contains feature flags for the application.
type Features struct {
	EnableMetrics   bool `yaml:"enable_metrics"`
	EnableCharts    bool `yaml:"enable_charts"`
	EnableHotReload bool `yaml:"enable_hot_reload"`
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}
