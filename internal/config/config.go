// Package config provides configuration loading and management for the
// region tools server. It handles loading configuration from YAML files,
// environment overrides and default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/region"
	"github.com/ironsheep/region-tools-mcp/internal/vq"
)

// Environment variables read by ApplyEnv and the binaries.
const (
	EnvConfigPath = "REGION_MCP_CONFIG"
	EnvLogLevel   = "REGION_MCP_LOG_LEVEL"
)

// Config represents the server configuration loaded from YAML
type Config struct {
	// Detector holds the default region filter and tracing switch
	Detector struct {
		region.Constraints `yaml:",inline"`

		// Trace logs encode/grow/filter timings for every detection
		Trace bool `yaml:"trace"`

		// Graph records region neighbours, parents and sub-regions
		Graph bool `yaml:"graph"`
	} `yaml:"detector"`

	// Labels controls how color images are turned into label images
	Labels imaging.LabelOptions `yaml:"labels"`

	// VQ holds the defaults of the clustering tools
	VQ struct {
		// K is the number of clusters
		K int `yaml:"k"`

		// MaxSteps bounds the number of Lloyd iterations
		MaxSteps int `yaml:"max_steps"`

		// MinMeanQE stops iterating once the mean quantization error drops to it
		MinMeanQE float64 `yaml:"min_mean_qe"`

		// Init is "random" or "sequential"
		Init string `yaml:"init"`

		// Seed for random initialization; 0 picks a time based seed
		Seed int64 `yaml:"seed"`
	} `yaml:"vq"`

	// Log parameters
	Log struct {
		// Level is "info" or "debug"
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detector.Constraints = region.DefaultConstraints()
	cfg.Detector.Trace = false
	cfg.Detector.Graph = false

	cfg.Labels = imaging.DefaultLabelOptions()

	cfg.VQ.K = 3
	cfg.VQ.MaxSteps = 100
	cfg.VQ.MinMeanQE = 0.5
	cfg.VQ.Init = vq.InitRandomFromData.String()
	cfg.VQ.Seed = 0

	cfg.Log.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// Keys missing from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.Log.Level == "debug"
}

// Validate checks value ranges that would otherwise surface as tool errors
// much later.
func (c *Config) Validate() error {
	d := c.Detector.Constraints
	if d.MinSize < 0 || d.MaxSize < d.MinSize {
		return fmt.Errorf("detector size range [%d, %d] is invalid", d.MinSize, d.MaxSize)
	}
	if d.MaxValue < d.MinValue {
		return fmt.Errorf("detector value range [%d, %d] is invalid", d.MinValue, d.MaxValue)
	}
	if err := c.Labels.Validate(); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	if c.VQ.K < 1 {
		return fmt.Errorf("vq.k must be at least 1, got %d", c.VQ.K)
	}
	if c.VQ.MaxSteps < 1 {
		return fmt.Errorf("vq.max_steps must be at least 1, got %d", c.VQ.MaxSteps)
	}
	if _, err := vq.ParseInitMode(c.VQ.Init); err != nil {
		return err
	}
	switch c.Log.Level {
	case "info", "debug":
	default:
		return fmt.Errorf("log.level must be info or debug, got %q", c.Log.Level)
	}
	return nil
}

// VQOptions returns the quantizer options selected by the configuration.
func (c *Config) VQOptions() []vq.Option {
	mode, _ := vq.ParseInitMode(c.VQ.Init)
	opts := []vq.Option{vq.WithInit(mode)}
	if c.VQ.Seed != 0 {
		opts = append(opts, vq.WithSeed(c.VQ.Seed))
	}
	return opts
}
