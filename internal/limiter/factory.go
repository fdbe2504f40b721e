package limiter

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrUnknownAlgorithm is returned when a Config names no known algorithm.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Config holds the parameters for creating a limiter.
//
// Rate is the refill rate (token_bucket, whole tokens per second) or the
// leak rate (leaky_bucket, units per second). Window is the window length
// for the window-based algorithms; sliding_window_log needs whole seconds.
type Config struct {
	Algorithm Algorithm     `json:"algorithm" yaml:"algorithm"`
	Capacity  uint32        `json:"capacity" yaml:"capacity"`
	Rate      float64       `json:"rate,omitempty" yaml:"rate,omitempty"`
	Window    time.Duration `json:"window,omitempty" yaml:"window,omitempty"`
}

// Validate checks that the config is valid for its algorithm.
func (c Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmTokenBucket:
		if c.Rate < 0 || c.Rate != math.Trunc(c.Rate) || c.Rate > math.MaxUint32 {
			return fmt.Errorf("token_bucket rate must be a whole number of tokens per second, got %v", c.Rate)
		}
	case AlgorithmLeakyBucket:
		if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) || c.Rate < 0 {
			return fmt.Errorf("leaky_bucket rate must be non-negative, got %v", c.Rate)
		}
	case AlgorithmFixedWindow, AlgorithmSlidingWindowCounter:
		if c.Window <= 0 {
			return fmt.Errorf("%s window must be positive, got %s", c.Algorithm, c.Window)
		}
	case AlgorithmSlidingWindowLog:
		if c.Window < time.Second || c.Window%time.Second != 0 {
			return fmt.Errorf("sliding_window_log window must be a whole number of seconds, got %s", c.Window)
		}
	default:
		return fmt.Errorf("%w %q, must be one of: %s", ErrUnknownAlgorithm, c.Algorithm, algorithmList())
	}
	return nil
}

// Build creates the single-owner limiter described by cfg.
func Build(cfg Config, opts ...Option) (Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Algorithm {
	case AlgorithmTokenBucket:
		return NewTokenBucket(cfg.Capacity, uint32(cfg.Rate), opts...), nil
	case AlgorithmLeakyBucket:
		return NewLeakyBucket(cfg.Capacity, cfg.Rate, opts...), nil
	case AlgorithmFixedWindow:
		return NewFixedWindow(cfg.Capacity, cfg.Window, opts...), nil
	case AlgorithmSlidingWindowCounter:
		return NewSlidingWindowCounter(cfg.Capacity, cfg.Window, opts...), nil
	case AlgorithmSlidingWindowLog:
		return NewSlidingWindowLog(cfg.Capacity, uint64(cfg.Window/time.Second), opts...), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}
}

// BuildShared creates the limiter described by cfg behind a Shared lock.
func BuildShared(cfg Config, opts ...Option) (*Shared[Limiter], error) {
	core, err := Build(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewShared(core), nil
}

func algorithmList() string {
	names := make([]string, 0, len(Algorithms()))
	for _, a := range Algorithms() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
