package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() config should be valid: %v", err)
	}
}

func TestWriteExampleLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "throttle.yaml")
	if err := WriteExample(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Limiters) != len(Example().Limiters) {
		t.Fatalf("loaded %d limiters, want %d", len(cfg.Limiters), len(Example().Limiters))
	}
}
