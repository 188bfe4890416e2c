// Package config holds the configuration of the host tools.
//
// Values come from, in increasing priority: defaults, a YAML config file,
// IRFRAME_* environment variables and command-line flags bound by the
// caller.
package config // import "github.com/sparques/ircapture/internal/config"

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sparques/ircapture"
	"github.com/sparques/ircapture/internal/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding the config.
const EnvPrefix = "IRFRAME"

// Config represents the complete configuration
type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CaptureConfig controls how edges are captured and framed
type CaptureConfig struct {
	// Source is the capture strategy: "pin" (software timestamps) or
	// "timer" (hardware input capture)
	Source string `mapstructure:"source"`
	// Mode is the frame store: "latch" (double buffer) or "buffer"
	// (buffering decoder)
	Mode string `mapstructure:"mode"`
	// DeadTime is the idle gap that ends a frame (pin source)
	DeadTime time.Duration `mapstructure:"dead_time"`
	// Tick is the duration of one timer count (timer source)
	Tick time.Duration `mapstructure:"tick"`
	// CounterBits is the width of the timer counter (timer source)
	CounterBits uint `mapstructure:"counter_bits"`
	// BufferSize is the number of edges or segments a frame can hold
	BufferSize int `mapstructure:"buffer_size"`
	// InProgressCount reports the segment count of a frame still being
	// captured instead of 0 (buffer mode)
	InProgressCount bool `mapstructure:"in_progress_count"`
	// Realtime paces the replay by the recorded durations
	Realtime bool `mapstructure:"realtime"`
}

// LoggingConfig controls the log output
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level"`
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Source:      "pin",
			Mode:        "latch",
			DeadTime:    ircapture.DefaultDeadTime,
			Tick:        250 * time.Nanosecond,
			CounterBits: 16,
			BufferSize:  128,
		},
		Logging: LoggingConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("capture.source", defaults.Capture.Source)
	v.SetDefault("capture.mode", defaults.Capture.Mode)
	v.SetDefault("capture.dead_time", defaults.Capture.DeadTime)
	v.SetDefault("capture.tick", defaults.Capture.Tick)
	v.SetDefault("capture.counter_bits", defaults.Capture.CounterBits)
	v.SetDefault("capture.buffer_size", defaults.Capture.BufferSize)
	v.SetDefault("capture.in_progress_count", defaults.Capture.InProgressCount)
	v.SetDefault("capture.realtime", defaults.Capture.Realtime)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// New returns a viper instance with defaults and environment lookup set
// up. If file is not empty it is read as the config file.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	// e.g., IRFRAME_CAPTURE_DEAD_TIME for capture.dead_time
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: could not read %q: %w", file, err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: could not decode configuration: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ValidationErrors collects every problem found in a Config.
type ValidationErrors []error

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return "config: " + strings.Join(msgs, "; ")
}

func (errs ValidationErrors) Unwrap() []error { return errs }

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid value")

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error
	invalid := func(key string, v any) {
		errs = append(errs, fmt.Errorf("%s=%v: %w", key, v, ErrInvalid))
	}

	switch c.Capture.Source {
	case "pin", "timer":
	default:
		invalid("capture.source", c.Capture.Source)
	}
	switch c.Capture.Mode {
	case "latch", "buffer":
	default:
		invalid("capture.mode", c.Capture.Mode)
	}
	if c.Capture.DeadTime <= 0 {
		invalid("capture.dead_time", c.Capture.DeadTime)
	}
	if c.Capture.Tick <= 0 {
		invalid("capture.tick", c.Capture.Tick)
	}
	if c.Capture.CounterBits == 0 || c.Capture.CounterBits > 32 {
		invalid("capture.counter_bits", c.Capture.CounterBits)
	}
	if c.Capture.BufferSize <= 0 {
		invalid("capture.buffer_size", c.Capture.BufferSize)
	}
	if !logging.IsValidLevel(c.Logging.Level) {
		invalid("logging.level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		invalid("logging.format", c.Logging.Format)
	}

	return errs
}

// IdleTimeout returns the idle time ending a frame with the timer source.
func (c *CaptureConfig) IdleTimeout() time.Duration {
	return ircapture.CounterSpan(c.Tick, c.CounterBits)
}
