package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
	"github.com/SmitUplenchwar2687/throttle/internal/config"
	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
)

// limiterOptions are the flags shared by commands that build a limiter.
// A --config file with --limiter selects a named definition; flags set
// explicitly on the command line override its fields.
type limiterOptions struct {
	configPath string
	name       string
	algorithm  string
	capacity   uint32
	rate       float64
	window     time.Duration
}

func (o *limiterOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "path to a YAML or JSON config file")
	cmd.Flags().StringVar(&o.name, "limiter", "", "name of the limiter to use from --config (default: first)")
	cmd.Flags().StringVar(&o.algorithm, "algorithm", string(limiter.AlgorithmTokenBucket),
		"algorithm (token_bucket, leaky_bucket, fixed_window, sliding_window_counter, sliding_window_log)")
	cmd.Flags().Uint32Var(&o.capacity, "capacity", 10, "maximum units admitted (bucket size or per-window limit)")
	cmd.Flags().Float64Var(&o.rate, "rate", 1, "refill rate (token_bucket) or leak rate (leaky_bucket) in units per second")
	cmd.Flags().DurationVar(&o.window, "window", time.Minute, "window length for the window-based algorithms")
}

// resolve returns the limiter definition to use. With --config it also
// applies the file's log section to root's logger.
func (o *limiterOptions) resolve(cmd *cobra.Command, root *rootOptions) (config.LimiterConfig, error) {
	l := config.LimiterConfig{Name: "cli"}

	if o.configPath != "" {
		cfg, err := config.LoadFile(o.configPath)
		if err != nil {
			return l, err
		}
		if err := cfg.Validate(); err != nil {
			return l, fmt.Errorf("invalid config %s: %w", o.configPath, err)
		}
		if err := root.applyLogConfig(cmd, cfg.Log); err != nil {
			return l, err
		}

		if o.name == "" {
			l = cfg.Limiters[0]
		} else {
			def, ok := cfg.Limiter(o.name)
			if !ok {
				return l, fmt.Errorf("limiter %q not found in %s", o.name, o.configPath)
			}
			l = def
		}
		o.applyFlagsIfSet(cmd, &l)
	} else {
		if o.name != "" {
			return l, fmt.Errorf("--limiter requires --config")
		}
		l.Config = limiter.Config{
			Algorithm: limiter.Algorithm(o.algorithm),
			Capacity:  o.capacity,
			Rate:      o.rate,
			Window:    o.window,
		}
	}

	if err := l.Config.Validate(); err != nil {
		return l, err
	}
	return l, nil
}

func (o *limiterOptions) applyFlagsIfSet(cmd *cobra.Command, l *config.LimiterConfig) {
	if cmd.Flags().Changed("algorithm") {
		l.Algorithm = limiter.Algorithm(o.algorithm)
	}
	if cmd.Flags().Changed("capacity") {
		l.Capacity = o.capacity
	}
	if cmd.Flags().Changed("rate") {
		l.Rate = o.rate
	}
	if cmd.Flags().Changed("window") {
		l.Window = o.window
	}
}

// newKeyed builds the per-key limiter set for l on clk.
func newKeyed(l config.LimiterConfig, clk clock.Clock) (*limiter.Keyed, error) {
	return limiter.NewKeyed(l.Config, limiter.WithClock(clk))
}

// virtualStart is where every virtual clock in the CLI starts.
func virtualStart() time.Time {
	return time.Now().Truncate(time.Second)
}
