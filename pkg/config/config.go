// Package config provides configuration loading and validation for segtree.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/segtree/pkg/levenshtein"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidMonoid      = errors.New("invalid default monoid")
	ErrInvalidMaxLeaves   = errors.New("max leaves must be positive")
	ErrInvalidMaxTrees    = errors.New("mcp max trees must be positive")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidStateFormat = errors.New("invalid mcp state format")
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const envPrefix = "SEGTREE"

var (
	validFormats   = []string{FormatTable, FormatJSON, FormatYAML}
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validStates    = []string{FormatJSON, FormatYAML}

	// MonoidNames lists every monoid name accepted by scripts and flags.
	MonoidNames = []string{"sum", "product", "max", "min", "gcd", "lcm", "xor", "concat"}
)

// Config holds all configuration for segtree.
type Config struct {
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tree      TreeConfig      `mapstructure:"tree"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// OutputConfig controls how results are rendered.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TreeConfig bounds tree construction.
type TreeConfig struct {
	DefaultMonoid string `mapstructure:"default_monoid"`
	MaxLeaves     int    `mapstructure:"max_leaves"`
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	MaxTrees    int    `mapstructure:"max_trees"`
	// StateDir, when set, holds a workspace snapshot loaded on start and
	// written on shutdown.
	StateDir    string `mapstructure:"state_dir"`
	StateFormat string `mapstructure:"state_format"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches segtree.yaml in the working directory,
// ./config and /etc/segtree; a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("segtree")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/segtree")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{Format: DefaultOutputFormat, Color: DefaultOutputColor},
		Logging: LoggingConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Tree:    TreeConfig{DefaultMonoid: DefaultMonoid, MaxLeaves: DefaultMaxLeaves},
		MCP: MCPConfig{
			MetricsAddr: DefaultMCPMetricsAddr,
			MaxTrees:    DefaultMCPMaxTrees,
			StateDir:    DefaultMCPStateDir,
			StateFormat: DefaultMCPStateFormat,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultOTLPEndpoint,
			OTLPInsecure: DefaultOTLPInsecure,
			SampleRatio:  DefaultSampleRatio,
		},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.color", DefaultOutputColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("tree.default_monoid", DefaultMonoid)
	viperCfg.SetDefault("tree.max_leaves", DefaultMaxLeaves)

	viperCfg.SetDefault("mcp.metrics_addr", DefaultMCPMetricsAddr)
	viperCfg.SetDefault("mcp.max_trees", DefaultMCPMaxTrees)
	viperCfg.SetDefault("mcp.state_dir", DefaultMCPStateDir)
	viperCfg.SetDefault("mcp.state_format", DefaultMCPStateFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	if !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if !slices.Contains(MonoidNames, c.Tree.DefaultMonoid) {
		return fmt.Errorf("%w: %q%s", ErrInvalidMonoid, c.Tree.DefaultMonoid, MonoidHint(c.Tree.DefaultMonoid))
	}

	if c.Tree.MaxLeaves <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxLeaves, c.Tree.MaxLeaves)
	}

	if c.MCP.MaxTrees <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTrees, c.MCP.MaxTrees)
	}

	if !slices.Contains(validStates, c.MCP.StateFormat) {
		return fmt.Errorf("%w: %q", ErrInvalidStateFormat, c.MCP.StateFormat)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// maxHintDistance bounds how far a typo may be from a known monoid name.
const maxHintDistance = 2

// MonoidHint returns a " (did you mean ...?)" suffix naming the known monoid
// closest to name, or "" when nothing is close.
func MonoidHint(name string) string {
	best, ok := levenshtein.Closest(strings.ToLower(name), MonoidNames, maxHintDistance)
	if !ok || best == name {
		return ""
	}

	return fmt.Sprintf(" (did you mean %q?)", best)
}
