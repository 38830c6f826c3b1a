/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Aggregate configuration for the analysis pipeline. Groups the settings of
every stage under one document that viper can load from flags, environment and files.
*/

package core

import (
	"fmt"
	"runtime"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/kleascm/gcode-analyzer/pkg/inference"
	"github.com/kleascm/gcode-analyzer/pkg/logging"
	"github.com/kleascm/gcode-analyzer/pkg/optimize"
	"github.com/kleascm/gcode-analyzer/pkg/pattern"
	"go.uber.org/multierr"
)

// Config contains all configuration parameters for the pipeline
// Supports both command-line flags and configuration files
type Config struct {
	Interpreter gcode.Options        `json:"interpreter" mapstructure:"interpreter"`
	Analysis    analysis.Config      `json:"analysis" mapstructure:"analysis"`
	Inference   inference.Config     `json:"inference" mapstructure:"inference"`
	Pattern     pattern.Config       `json:"pattern" mapstructure:"pattern"`
	Optimize    optimize.Config      `json:"optimize" mapstructure:"optimize"`
	Logging     logging.LoggerConfig `json:"logging" mapstructure:"logging"`

	BatchWorkers int `json:"batch_workers" mapstructure:"batch_workers"` // Files analyzed concurrently, 0 = NumCPU
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() *Config {
	return &Config{
		Interpreter: gcode.DefaultOptions(),
		Analysis:    analysis.DefaultConfig(),
		Inference:   inference.DefaultConfig(),
		Pattern:     pattern.DefaultConfig(),
		Optimize:    optimize.DefaultConfig(),
		Logging:     *logging.DefaultLoggerConfig(),
	}
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var err error
	section := func(name string, e error) {
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, e))
		}
	}

	section("interpreter", c.Interpreter.Validate())
	section("analysis", c.Analysis.Validate())
	section("inference", c.Inference.Validate())
	section("pattern", c.Pattern.Validate())
	section("optimize", c.Optimize.Validate())
	section("logging", c.Logging.Validate())
	if c.BatchWorkers < 0 {
		section("batch_workers", fmt.Errorf("must not be negative"))
	}
	return err
}

func (c *Config) batchWorkers() int {
	if c.BatchWorkers > 0 {
		return c.BatchWorkers
	}
	return runtime.NumCPU()
}

// layerWorkers is shared by the per-layer stages
func (c *Config) layerWorkers() int {
	if c.Analysis.Workers > 0 {
		return c.Analysis.Workers
	}
	return runtime.NumCPU()
}
