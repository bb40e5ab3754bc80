package config

import (
	"fmt"

	"github.com/MeKo-Tech/longimg/internal/gallery"
)

// Default values applied when neither file, environment nor flags set them.
const (
	DefaultInputDir  = "input"
	DefaultOutputDir = "output"
	DefaultBaseName  = "stitched_long_image"
	DefaultQuality   = 95
	DefaultGroupSize = 9
	DefaultSort      = "name"
	DefaultLogLevel  = "info"
)

// DefaultConfig returns a configuration populated with the default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Input:    InputConfig{Dir: DefaultInputDir, Sort: DefaultSort},
		Output:   OutputConfig{Dir: DefaultOutputDir, BaseName: DefaultBaseName, Quality: DefaultQuality},
		Stitch:   StitchConfig{GroupSize: DefaultGroupSize, Workers: 1},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", c.LogLevel)
	}

	if c.Input.Sort != "" && !gallery.ValidSortKey(c.Input.Sort) {
		return fmt.Errorf("invalid input.sort %q (expected name, size or time)", c.Input.Sort)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("invalid output.quality %d (expected 1-100)", c.Output.Quality)
	}

	if c.Stitch.GroupSize < 1 {
		return fmt.Errorf("invalid stitch.group_size %d (expected at least 1)", c.Stitch.GroupSize)
	}

	if c.Stitch.Workers < 0 {
		return fmt.Errorf("invalid stitch.workers %d (expected 0 or more)", c.Stitch.Workers)
	}

	return nil
}
