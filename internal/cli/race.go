package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
	"github.com/SmitUplenchwar2687/throttle/internal/metrics"
)

// ErrOveradmitted is returned when a race admits more than the capacity.
var ErrOveradmitted = errors.New("limiter admitted more units than its capacity")

func newRaceCmd(root *rootOptions) *cobra.Command {
	var (
		lo          limiterOptions
		params      raceParams
		showMetrics bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race goroutines against one shared limiter",
		Long: `Starts --goroutines workers that each call TryAcquire --attempts times on a
single shared limiter while the virtual clock stands still. With no time
passing, the admitted units must never exceed the capacity.`,
		Example: `  throttle race --capacity 100 --goroutines 64 --attempts 10
  throttle race --algorithm sliding_window_log --capacity 50 --window 1s --units 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.goroutines <= 0 || params.attempts <= 0 {
				return errors.New("--goroutines and --attempts must be positive")
			}

			def, err := lo.resolve(cmd, root)
			if err != nil {
				return err
			}

			vc := clock.NewVirtualClock(virtualStart())
			shared, err := limiter.BuildShared(def.Config, limiter.WithClock(vc))
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			lim := metrics.NewCollector(reg).Instrument(def.Name, def.Algorithm, shared)

			root.logger.Info("starting race",
				"algorithm", def.Algorithm,
				"capacity", def.Capacity,
				"goroutines", params.goroutines,
				"attempts", params.attempts,
			)

			res, err := runRace(cmd.Context(), lim, params)
			if err != nil {
				return err
			}
			res.Algorithm = string(def.Algorithm)

			out := cmd.OutOrStdout()
			if outputJSON {
				if err := json.NewEncoder(out).Encode(res); err != nil {
					return err
				}
			} else {
				printRaceResult(out, &res)
			}
			if showMetrics {
				if err := writeMetrics(out, reg); err != nil {
					return err
				}
			}

			if res.AdmittedUnits > uint64(res.Capacity) {
				return fmt.Errorf("%w: %d > %d", ErrOveradmitted, res.AdmittedUnits, res.Capacity)
			}
			return nil
		},
	}

	lo.addFlags(cmd)
	cmd.Flags().IntVar(&params.goroutines, "goroutines", 32, "number of concurrent workers")
	cmd.Flags().IntVar(&params.attempts, "attempts", 10, "acquire attempts per worker")
	cmd.Flags().Uint32Var(&params.units, "units", 1, "units requested by each attempt")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print Prometheus metrics after the run")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

type raceParams struct {
	goroutines int
	attempts   int
	units      uint32
}

// RaceResult reports the outcome of a race.
type RaceResult struct {
	Algorithm     string           `json:"algorithm"`
	Capacity      uint32           `json:"capacity"`
	Attempts      int              `json:"attempts"`
	Admitted      int64            `json:"admitted"`
	Rejected      int64            `json:"rejected"`
	AdmittedUnits uint64           `json:"admitted_units"`
	Final         limiter.Snapshot `json:"final"`
}

// runRace hammers lim from p.goroutines workers released together. lim must
// be safe for concurrent use.
func runRace(ctx context.Context, lim limiter.Limiter, p raceParams) (RaceResult, error) {
	var admitted, rejected atomic.Int64
	start := make(chan struct{})

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.goroutines; i++ {
		g.Go(func() error {
			select {
			case <-start:
			case <-ctx.Done():
				return ctx.Err()
			}
			for j := 0; j < p.attempts; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if lim.TryAcquire(p.units) {
					admitted.Add(1)
				} else {
					rejected.Add(1)
				}
			}
			return nil
		})
	}
	close(start)

	if err := g.Wait(); err != nil {
		return RaceResult{}, err
	}

	return RaceResult{
		Capacity:      lim.Limit(),
		Attempts:      p.goroutines * p.attempts,
		Admitted:      admitted.Load(),
		Rejected:      rejected.Load(),
		AdmittedUnits: uint64(admitted.Load()) * uint64(p.units),
		Final:         limiter.Snap(lim),
	}, nil
}

func printRaceResult(w io.Writer, r *RaceResult) {
	fmt.Fprintf(w, "=== Race: %s ===\n", r.Algorithm)
	fmt.Fprintf(w, "  Attempts:       %d\n", r.Attempts)
	fmt.Fprintf(w, "  Admitted:       %d (%d units)\n", r.Admitted, r.AdmittedUnits)
	fmt.Fprintf(w, "  Rejected:       %d\n", r.Rejected)
	fmt.Fprintf(w, "  Capacity:       %d\n", r.Capacity)
	fmt.Fprintf(w, "  Final state:    used=%d remaining=%d\n", r.Final.Used, r.Final.Remaining)
	if r.AdmittedUnits <= uint64(r.Capacity) {
		fmt.Fprintln(w, "  Capacity bound held.")
	} else {
		fmt.Fprintln(w, "  CAPACITY BOUND VIOLATED.")
	}
}
