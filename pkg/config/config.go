package config

import internalconfig "github.com/SmitUplenchwar2687/throttle/internal/config"

// Config is the top-level configuration for a throttle session.
type Config = internalconfig.Config

// LogConfig holds logger settings.
type LogConfig = internalconfig.LogConfig

// LimiterConfig is a named limiter definition.
type LimiterConfig = internalconfig.LimiterConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// Example returns the configuration written by WriteExample.
func Example() Config {
	return internalconfig.Example()
}

// LoadFile reads a YAML or JSON config file and merges it with defaults.
func LoadFile(path string) (Config, error) {
	return internalconfig.LoadFile(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
