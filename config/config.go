// Package config provides configuration loading and management for Aida.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/aida/model"
	"github.com/c360studio/aida/workflow"
)

// Config represents the complete Aida configuration
type Config struct {
	Models   ModelsConfig   `yaml:"models"`
	Workflow WorkflowConfig `yaml:"workflow"`
	NATS     NATSConfig     `yaml:"nats"`
	Intake   IntakeConfig   `yaml:"intake"`
}

// ModelsConfig configures the capability registry
type ModelsConfig struct {
	// Default is the fallback model when a capability has no chain
	Default string `yaml:"default"`
	// Capabilities maps capability names to preferred/fallback chains
	Capabilities map[string]model.CapabilityConfig `yaml:"capabilities"`
	// Endpoints maps model names to provider endpoints
	Endpoints map[string]model.EndpointConfig `yaml:"endpoints"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// WorkflowConfig configures the orchestration engine
type WorkflowConfig struct {
	// MaxRefinements bounds the refinement loop per run
	MaxRefinements int `yaml:"max_refinements"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = progress reporting and
	// persistence disabled)
	URL string `yaml:"url"`
}

// IntakeConfig configures profile intake
type IntakeConfig struct {
	// WatchDir is the directory watched for dropped profile files
	WatchDir string `yaml:"watch_dir"`
	// Debounce is the quiet period before a dropped file is processed
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Default: "gemini-flash",
			Timeout: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			MaxRefinements: workflow.DefaultMaxRefinements,
		},
		NATS: NATSConfig{
			URL: "",
		},
		Intake: IntakeConfig{
			WatchDir: "",
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Models.Default == "" {
		return fmt.Errorf("models.default is required")
	}
	if c.Workflow.MaxRefinements < 0 {
		return fmt.Errorf("workflow.max_refinements must not be negative")
	}
	for name, ep := range c.Models.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("models.endpoints.%s.provider is required", name)
		}
	}
	return nil
}

// Registry builds a model registry from the configuration. When no
// capabilities or endpoints are configured, the built-in defaults are used.
func (c *Config) Registry() *model.Registry {
	if len(c.Models.Capabilities) == 0 && len(c.Models.Endpoints) == 0 {
		return model.NewDefaultRegistry()
	}

	reg := model.NewDefaultRegistry()
	for name, capCfg := range c.Models.Capabilities {
		cfg := capCfg
		reg.SetCapability(model.Capability(name), &cfg)
	}
	for name, epCfg := range c.Models.Endpoints {
		cfg := epCfg
		reg.SetEndpoint(name, &cfg)
	}
	return reg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Models
	if other.Models.Default != "" {
		c.Models.Default = other.Models.Default
	}
	if len(other.Models.Capabilities) > 0 {
		if c.Models.Capabilities == nil {
			c.Models.Capabilities = make(map[string]model.CapabilityConfig)
		}
		for name, cap := range other.Models.Capabilities {
			c.Models.Capabilities[name] = cap
		}
	}
	if len(other.Models.Endpoints) > 0 {
		if c.Models.Endpoints == nil {
			c.Models.Endpoints = make(map[string]model.EndpointConfig)
		}
		for name, ep := range other.Models.Endpoints {
			c.Models.Endpoints[name] = ep
		}
	}
	if other.Models.Timeout != 0 {
		c.Models.Timeout = other.Models.Timeout
	}

	// Workflow
	if other.Workflow.MaxRefinements != 0 {
		c.Workflow.MaxRefinements = other.Workflow.MaxRefinements
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Intake
	if other.Intake.WatchDir != "" {
		c.Intake.WatchDir = other.Intake.WatchDir
	}
	if other.Intake.Debounce != 0 {
		c.Intake.Debounce = other.Intake.Debounce
	}
}
