package config

// Config represents the complete configuration for the longimg application.
// It supports loading from configuration files, environment variables, and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Input selection
	Input InputConfig `mapstructure:"input" yaml:"input" json:"input"`

	// Output artifacts
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Stitching behavior
	Stitch StitchConfig `mapstructure:"stitch" yaml:"stitch" json:"stitch"`
}

// InputConfig selects and orders the source images.
type InputConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Sort string `mapstructure:"sort" yaml:"sort" json:"sort"`
}

// OutputConfig controls where and how artifacts are written.
type OutputConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir" json:"dir"`
	BaseName string `mapstructure:"base_name" yaml:"base_name" json:"base_name"`
	Quality  int    `mapstructure:"quality" yaml:"quality" json:"quality"`
}

// StitchConfig controls grouping and scheduling.
type StitchConfig struct {
	GroupSize int `mapstructure:"group_size" yaml:"group_size" json:"group_size"`
	Workers   int `mapstructure:"workers" yaml:"workers" json:"workers"`
}
