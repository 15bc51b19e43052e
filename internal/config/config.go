// Package config holds the full application configuration, loaded through
// viper from file, environment (HNPSCAN_ prefix), and CLI flags.
package config

import (
	"fmt"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Rules    RulesConfig    `mapstructure:"rules" yaml:"rules"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	// Scan gets its marching orders from CLI flags, not the config file.
	Scan ScanConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for console log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig configures the analysis pipeline driver.
type EngineConfig struct {
	// Backend selects the analysis back end: "native" (built-in statement
	// parser pipeline) or "treesitter".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// ReadConcurrency bounds the file-reading worker pool.
	ReadConcurrency int `mapstructure:"read_concurrency" yaml:"read_concurrency"`
	// ParseConcurrency bounds the per-file parse workers.
	ParseConcurrency int `mapstructure:"parse_concurrency" yaml:"parse_concurrency"`
}

// AnalysisConfig carries the tunable confidence parameters. The ordering
// behavior (guards, validation and cross-file flows strictly reduce
// confidence) is fixed; the exact constants are not load-bearing.
type AnalysisConfig struct {
	MinConfidence     float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	GuardPenalty      float64 `mapstructure:"guard_penalty" yaml:"guard_penalty"`
	ValidationPenalty float64 `mapstructure:"validation_penalty" yaml:"validation_penalty"`
	CrossFilePenalty  float64 `mapstructure:"cross_file_penalty" yaml:"cross_file_penalty"`
	// UnknownCallWeight is the propagation weight for callees without a rule.
	UnknownCallWeight float64 `mapstructure:"unknown_call_weight" yaml:"unknown_call_weight"`
}

// RulesConfig selects the pattern libraries.
type RulesConfig struct {
	// Framework keys the built-in rule packs. "auto" triggers detection.
	Framework string `mapstructure:"framework" yaml:"framework"`
	// File optionally points at a YAML rules file that overrides built-ins.
	File string `mapstructure:"file" yaml:"file"`
}

// DatabaseConfig holds the optional findings-store connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ScanConfig holds settings populated from CLI flags for a specific scan job.
type ScanConfig struct {
	Target  string
	Output  string
	Format  string
	Persist bool
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "hnpscan")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.backend", "native")
	v.SetDefault("engine.read_concurrency", 8)
	v.SetDefault("engine.parse_concurrency", 8)

	// -- Analysis --
	v.SetDefault("analysis.min_confidence", 0.3)
	v.SetDefault("analysis.guard_penalty", 0.3)
	v.SetDefault("analysis.validation_penalty", 0.2)
	v.SetDefault("analysis.cross_file_penalty", 0.1)
	v.SetDefault("analysis.unknown_call_weight", 0.4)

	// -- Rules --
	v.SetDefault("rules.framework", "auto")
	v.SetDefault("rules.file", "")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Allow "~/rules.yaml" style paths for the rules file.
	if cfg.Rules.File != "" {
		expanded, err := homedir.Expand(cfg.Rules.File)
		if err != nil {
			return nil, fmt.Errorf("invalid rules file path %q: %w", cfg.Rules.File, err)
		}
		cfg.Rules.File = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case "native", "treesitter":
	default:
		return fmt.Errorf("engine.backend must be \"native\" or \"treesitter\", got %q", c.Engine.Backend)
	}
	if c.Engine.ReadConcurrency <= 0 {
		return fmt.Errorf("engine.read_concurrency must be a positive integer")
	}
	if c.Engine.ParseConcurrency <= 0 {
		return fmt.Errorf("engine.parse_concurrency must be a positive integer")
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the analysis tunables.
func (a *AnalysisConfig) Validate() error {
	inUnit := func(name string, f float64) error {
		if f < 0.0 || f > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %v", name, f)
		}
		return nil
	}
	if err := inUnit("min_confidence", a.MinConfidence); err != nil {
		return err
	}
	if err := inUnit("guard_penalty", a.GuardPenalty); err != nil {
		return err
	}
	if err := inUnit("validation_penalty", a.ValidationPenalty); err != nil {
		return err
	}
	if err := inUnit("cross_file_penalty", a.CrossFilePenalty); err != nil {
		return err
	}
	if err := inUnit("unknown_call_weight", a.UnknownCallWeight); err != nil {
		return err
	}
	if a.GuardPenalty == 0 {
		return fmt.Errorf("guard_penalty must be strictly positive so guarded flows rank below unguarded ones")
	}
	if a.ValidationPenalty == 0 {
		return fmt.Errorf("validation_penalty must be strictly positive")
	}
	if a.CrossFilePenalty == 0 {
		return fmt.Errorf("cross_file_penalty must be strictly positive")
	}
	return nil
}
