// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dose-calculator/core/dose"
	"dose-calculator/core/shield"
	"dose-calculator/internal/errors"
	"dose-calculator/internal/logging"
	"dose-calculator/internal/tracing"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Catalogue selects where reference data comes from
	Catalogue CatalogueConfig `json:"catalogue" yaml:"catalogue"`

	// Defaults fill in estimation inputs the user leaves out
	Defaults DefaultsConfig `json:"defaults" yaml:"defaults"`

	// Reports contains report history configuration
	Reports ReportsConfig `json:"reports" yaml:"reports"`

	// Server contains HTTP API configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`

	// Tracing contains OpenTelemetry settings for the server
	Tracing tracing.Config `json:"tracing" yaml:"tracing"`
}

// CatalogueConfig contains catalogue settings
type CatalogueConfig struct {
	// Driver is "memory", "sqlite" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the database path or connection string
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// SeedIfEmpty imports the bundled dataset into an empty database
	SeedIfEmpty bool `json:"seed_if_empty" yaml:"seed_if_empty"`
}

// DefaultsConfig contains estimation defaults
type DefaultsConfig struct {
	SourceIndex int             `json:"source_index" yaml:"source_index"`
	Distance    float64         `json:"distance_cm" yaml:"distance_cm"`
	Material    shield.Material `json:"material" yaml:"material"`
	Thickness   float64         `json:"thickness_cm" yaml:"thickness_cm"`
	DoseType    dose.Type       `json:"dose_type" yaml:"dose_type"`

	// Workers bounds parallel scenario evaluation
	Workers int `json:"workers" yaml:"workers"`
}

// ReportsConfig contains report history settings
type ReportsConfig struct {
	// Backend is "file", "memory" or "s3"
	Backend string `json:"backend" yaml:"backend"`

	// Path is the report directory for the file backend
	Path string `json:"path" yaml:"path"`

	// S3 is used by the s3 backend
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config locates the report bucket. Credentials come from the default
// AWS chain.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// SaveReports stores every API estimate in the report history
	SaveReports bool `json:"save_reports" yaml:"save_reports"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".dose-calculator")

	return &Config{
		Version: "1.0",
		Catalogue: CatalogueConfig{
			Driver:      "memory",
			DSN:         filepath.Join(base, "catalogue.db"),
			SeedIfEmpty: true,
		},
		Defaults: DefaultsConfig{
			SourceIndex: 0,
			Distance:    100,
			Material:    shield.Lead,
			Thickness:   0,
			DoseType:    dose.Ambient,
			Workers:     4,
		},
		Reports: ReportsConfig{
			Backend: "file",
			Path:    filepath.Join(base, "reports"),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: logging.DefaultConfig(),
		Tracing: tracing.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields defaults;
// .yaml and .yml files are read as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(errors.TypeConfig, "cannot read config file", err).WithContext("path", path)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Parsing("invalid config file", err).WithContext("path", path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail deep inside a command
func (c *Config) Validate() error {
	switch c.Catalogue.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return errors.Configf("unknown catalogue driver %q", c.Catalogue.Driver)
	}
	switch c.Reports.Backend {
	case "file", "memory":
	case "s3":
		if c.Reports.S3.Bucket == "" {
			return errors.Config("s3 report backend requires reports.s3.bucket")
		}
	default:
		return errors.Configf("unknown report backend %q", c.Reports.Backend)
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return errors.Configf("tracing sample ratio must be within [0, 1], got %v", r)
	}
	if c.Defaults.Distance <= 0 {
		return errors.Configf("default distance must be positive, got %v", c.Defaults.Distance)
	}
	if c.Defaults.Thickness < 0 {
		return errors.Configf("default thickness must not be negative, got %v", c.Defaults.Thickness)
	}
	return nil
}

// Save saves configuration to a file in the format its extension names
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
