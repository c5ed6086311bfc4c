package comply

import (
	"fmt"

	"github.com/justy6674/comply/service/workflow"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON or YAML; nested fields inherit their package
// defaults when left zero.
type Config struct {
	Workflow workflow.Config `json:"workflow" yaml:"workflow"`
	Tracing  TracingConfig   `json:"tracing" yaml:"tracing"`
}

// TracingConfig controls the optional stdout trace exporter.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	OutputFile string `json:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New via
// WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Workflow: workflow.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}
