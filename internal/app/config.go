package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vk/mathscope/internal/exprgraph"
	"github.com/vk/mathscope/internal/hclexpr"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePaths []string // hcl files or directories
	DeleteIDs  []string // removed after the first pass

	LogFormat string
	LogLevel  string

	// AllowedDuplicatePattern selects names that may be assigned more than
	// once when nothing reads them. Empty allows no duplicates.
	AllowedDuplicatePattern string
	ParseCacheSize          int
	FailOnErrors            bool
	NoColor                 bool

	duplicatePattern *regexp.Regexp
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		LogFormat:               "text",
		LogLevel:                "info",
		AllowedDuplicatePattern: exprgraph.DefaultAllowedDuplicateLeafPattern.String(),
		ParseCacheSize:          hclexpr.DefaultCacheSize,
	}
}

// NewConfig validates cfg and returns a copy ready for NewApp.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ScenePaths) == 0 {
		return nil, errors.New("at least one scene path is required")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.ParseCacheSize <= 0 {
		return nil, fmt.Errorf("invalid parse-cache-size %d: must be positive", cfg.ParseCacheSize)
	}

	cfg.duplicatePattern = nil
	if cfg.AllowedDuplicatePattern != "" {
		re, err := regexp.Compile(cfg.AllowedDuplicatePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed-duplicate-pattern: %w", err)
		}
		cfg.duplicatePattern = re
	}

	return &cfg, nil
}

// FileConfig is the optional TOML configuration file. Unset keys leave the
// current value alone.
type FileConfig struct {
	LogFormat               *string `toml:"log_format"`
	LogLevel                *string `toml:"log_level"`
	AllowedDuplicatePattern *string `toml:"allowed_duplicate_pattern"`
	ParseCacheSize          *int    `toml:"parse_cache_size"`
	FailOnErrors            *bool   `toml:"fail_on_errors"`
	NoColor                 *bool   `toml:"no_color"`
}

// LoadFileConfig reads a TOML configuration file. Unknown keys are errors.
func LoadFileConfig(path string) (*FileConfig, error) {
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return &fc, nil
}

// ApplyTo overwrites the fields of cfg that the file sets.
func (fc *FileConfig) ApplyTo(cfg *Config) {
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.AllowedDuplicatePattern != nil {
		cfg.AllowedDuplicatePattern = *fc.AllowedDuplicatePattern
	}
	if fc.ParseCacheSize != nil {
		cfg.ParseCacheSize = *fc.ParseCacheSize
	}
	if fc.FailOnErrors != nil {
		cfg.FailOnErrors = *fc.FailOnErrors
	}
	if fc.NoColor != nil {
		cfg.NoColor = *fc.NoColor
	}
}
