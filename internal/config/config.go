// Package config loads the webpenc command configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/rs/zerolog"
	"go.mau.fi/util/ptr"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no --config flag
// is given.
const EnvPath = "WEBPENC_CONFIG"

// Encoder holds defaults for the encode and frames commands.
type Encoder struct {
	Quality          float32 `yaml:"quality"`
	CleanTransparent bool    `yaml:"clean_transparent"`
	Verify           bool    `yaml:"verify"`
	MaxWidth         int     `yaml:"max_width"`
	MaxHeight        int     `yaml:"max_height"`
}

// Frames configures batch encoding of a frame directory.
type Frames struct {
	Jobs int `yaml:"jobs"`
	// Pattern is the output file name format; it receives the frame index.
	Pattern     string `yaml:"pattern"`
	MetricsFile string `yaml:"metrics_file"`
}

// Config is the top-level configuration file.
type Config struct {
	Encoder Encoder           `yaml:"encoder"`
	Frames  Frames            `yaml:"frames"`
	Logging zeroconfig.Config `yaml:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Encoder: Encoder{Quality: 75},
		Frames: Frames{
			Jobs:    runtime.NumCPU(),
			Pattern: "frame-%05d.webp",
		},
		Logging: zeroconfig.Config{
			Writers: []zeroconfig.WriterConfig{{
				Type:   zeroconfig.WriterTypeStderr,
				Format: zeroconfig.LogFormatPrettyColored,
			}},
			MinLevel: ptr.Ptr(zerolog.InfoLevel),
		},
	}
}

// Path resolves the config location: the flag value if set, else $WEBPENC_CONFIG.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvPath)
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !(c.Encoder.Quality >= 0 && c.Encoder.Quality <= 100) {
		return fmt.Errorf("encoder.quality %.2f out of range 0-100", c.Encoder.Quality)
	}
	if c.Encoder.MaxWidth < 0 || c.Encoder.MaxHeight < 0 {
		return fmt.Errorf("encoder.max_width and max_height must not be negative")
	}
	if c.Frames.Jobs < 1 {
		return fmt.Errorf("frames.jobs must be at least 1, got %d", c.Frames.Jobs)
	}
	if err := ValidatePattern(c.Frames.Pattern); err != nil {
		return fmt.Errorf("frames.pattern: %w", err)
	}
	return nil
}

var patternRe = regexp.MustCompile(`^[^%]*%0?[0-9]*d[^%]*$`)

// ValidatePattern checks that an output name pattern holds exactly one
// integer verb such as %d or %05d.
func ValidatePattern(pattern string) error {
	if !patternRe.MatchString(pattern) {
		return fmt.Errorf("%q must contain exactly one integer verb", pattern)
	}
	return nil
}

// Logger compiles the logging section, overriding its level when level is
// not empty.
func (c *Config) Logger(level string) (*zerolog.Logger, error) {
	if level != "" {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		c.Logging.MinLevel = &lvl
	}
	return c.Logging.Compile()
}
