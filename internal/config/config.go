package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
	"github.com/SmitUplenchwar2687/throttle/internal/logging"
)

// Environment variables that override file values.
const (
	EnvLogLevel  = "THROTTLE_LOG_LEVEL"
	EnvLogFormat = "THROTTLE_LOG_FORMAT"
)

// Config is the top-level configuration for a throttle session.
type Config struct {
	Log      LogConfig       `json:"log" yaml:"log"`
	Limiters []LimiterConfig `json:"limiters" yaml:"limiters"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// LimiterConfig is a named limiter definition.
type LimiterConfig struct {
	Name           string `json:"name" yaml:"name"`
	limiter.Config `yaml:",inline"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Limiters: []LimiterConfig{
			{
				Name: "default",
				Config: limiter.Config{
					Algorithm: limiter.AlgorithmTokenBucket,
					Capacity:  10,
					Rate:      1,
					Window:    time.Second,
				},
			},
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	if len(c.Limiters) == 0 {
		return errors.New("at least one limiter must be defined")
	}

	seen := make(map[string]bool, len(c.Limiters))
	for i, l := range c.Limiters {
		if l.Name == "" {
			return fmt.Errorf("limiters[%d]: name is required", i)
		}
		if seen[l.Name] {
			return fmt.Errorf("limiters[%d]: duplicate name %q", i, l.Name)
		}
		seen[l.Name] = true
		if err := l.Config.Validate(); err != nil {
			return fmt.Errorf("limiter %q: %w", l.Name, err)
		}
	}
	return nil
}

// Limiter returns the limiter definition called name.
func (c Config) Limiter(name string) (LimiterConfig, bool) {
	for _, l := range c.Limiters {
		if l.Name == name {
			return l, true
		}
	}
	return LimiterConfig{}, false
}

// LoadFile reads a YAML (.yaml, .yml) or JSON config file and merges it with
// defaults. Fields not specified in the file retain their default values; a
// file that defines limiters replaces the default limiter list. Environment
// overrides are applied last.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var raw rawConfig
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	if raw.Log.Format != "" {
		cfg.Log.Format = raw.Log.Format
	}

	if len(raw.Limiters) > 0 {
		cfg.Limiters = make([]LimiterConfig, 0, len(raw.Limiters))
		for i, rl := range raw.Limiters {
			l, err := rl.limiterConfig()
			if err != nil {
				return cfg, fmt.Errorf("parsing limiters[%d]: %w", i, err)
			}
			cfg.Limiters = append(cfg.Limiters, l)
		}
	}

	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

// ApplyEnvOverrides replaces log settings with THROTTLE_LOG_LEVEL and
// THROTTLE_LOG_FORMAT when they are set.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
}

// rawConfig is the file representation with string durations.
type rawConfig struct {
	Log struct {
		Level  string `json:"level" yaml:"level"`
		Format string `json:"format" yaml:"format"`
	} `json:"log" yaml:"log"`
	Limiters []rawLimiter `json:"limiters" yaml:"limiters"`
}

type rawLimiter struct {
	Name      string  `json:"name" yaml:"name"`
	Algorithm string  `json:"algorithm" yaml:"algorithm"`
	Capacity  uint32  `json:"capacity" yaml:"capacity"`
	Rate      float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Window    string  `json:"window,omitempty" yaml:"window,omitempty"`
}

func (rl rawLimiter) limiterConfig() (LimiterConfig, error) {
	l := LimiterConfig{
		Name: rl.Name,
		Config: limiter.Config{
			Algorithm: limiter.Algorithm(rl.Algorithm),
			Capacity:  rl.Capacity,
			Rate:      rl.Rate,
			Window:    time.Second,
		},
	}
	if l.Algorithm == "" {
		l.Algorithm = limiter.AlgorithmTokenBucket
	}
	if rl.Window != "" {
		d, err := time.ParseDuration(rl.Window)
		if err != nil {
			return l, fmt.Errorf("window: %w", err)
		}
		l.Window = d
	}
	return l, nil
}

func toRaw(cfg Config) rawConfig {
	var raw rawConfig
	raw.Log.Level = cfg.Log.Level
	raw.Log.Format = cfg.Log.Format
	for _, l := range cfg.Limiters {
		raw.Limiters = append(raw.Limiters, rawLimiter{
			Name:      l.Name,
			Algorithm: string(l.Algorithm),
			Capacity:  l.Capacity,
			Rate:      l.Rate,
			Window:    l.Window.String(),
		})
	}
	return raw
}

// Example returns the configuration written by WriteExample: one limiter
// per algorithm.
func Example() Config {
	cfg := Default()
	cfg.Limiters = []LimiterConfig{
		{Name: "api", Config: limiter.Config{Algorithm: limiter.AlgorithmTokenBucket, Capacity: 10, Rate: 1, Window: time.Second}},
		{Name: "uploads", Config: limiter.Config{Algorithm: limiter.AlgorithmLeakyBucket, Capacity: 20, Rate: 2.5, Window: time.Second}},
		{Name: "login", Config: limiter.Config{Algorithm: limiter.AlgorithmFixedWindow, Capacity: 5, Window: time.Minute}},
		{Name: "search", Config: limiter.Config{Algorithm: limiter.AlgorithmSlidingWindowCounter, Capacity: 100, Window: 10 * time.Second}},
		{Name: "webhooks", Config: limiter.Config{Algorithm: limiter.AlgorithmSlidingWindowLog, Capacity: 30, Window: time.Minute}},
	}
	return cfg
}

// WriteExample writes an example config file to the given path, as YAML
// when the extension is .yaml or .yml and JSON otherwise.
func WriteExample(path string) error {
	raw := toRaw(Example())

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(raw)
	} else {
		data, err = json.MarshalIndent(raw, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding example config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
