package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig represents the configuration for a batch run loaded from
// a YAML file via `scrapinator run --config job.yaml`.
type RunConfig struct {
	// Tasks to run
	Tasks []TaskConfig `yaml:"tasks" json:"tasks"`

	// Parallelism is how many tasks run concurrently (default: 1)
	Parallelism int `yaml:"parallelism" json:"parallelism"`

	// Artifact directory override
	ArtifactDir string `yaml:"artifact_dir" json:"artifact_dir"`

	// PlanOnly stops each task after plan generation
	PlanOnly bool `yaml:"plan_only" json:"plan_only"`

	// DryRun walks plans step by step without driving a browser
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	// Force executes plans below the confidence threshold
	Force bool `yaml:"force" json:"force"`
}

// TaskConfig describes a single task within a batch run.
type TaskConfig struct {
	Description string   `yaml:"description" json:"description"`
	URL         string   `yaml:"url" json:"url"`
	Constraints []string `yaml:"constraints" json:"constraints"`
}

// Validate validates the configuration and applies defaults.
func (c *RunConfig) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("at least one task is required")
	}

	for i, task := range c.Tasks {
		if task.Description == "" {
			return fmt.Errorf("task %d: description is required", i)
		}
		if task.URL == "" {
			return fmt.Errorf("task %d: url is required", i)
		}
	}

	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative")
	}

	// Default to sequential execution
	if c.Parallelism == 0 {
		c.Parallelism = 1
	}

	return nil
}

// DefaultRunConfig returns a default configuration suitable for most use cases
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Parallelism: 1,
	}
}

// LoadRunConfig loads a batch run configuration from a YAML file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultRunConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	return config, nil
}
