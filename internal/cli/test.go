package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
	"github.com/SmitUplenchwar2687/throttle/internal/metrics"
	"github.com/SmitUplenchwar2687/throttle/internal/recorder"
)

func newTestCmd(root *rootOptions) *cobra.Command {
	var (
		lo          limiterOptions
		params      testParams
		recordPath  string
		showMetrics bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run a limiter scenario against a virtual clock",
		Long: `Sends batches of acquire requests to a limiter driven by a virtual clock.
Before every request the limiter is refreshed and its status recorded; the
clock then advances by --interval. With --fast-forward a second batch runs
after jumping the clock forward, showing how capacity comes back.`,
		Example: `  throttle test --algorithm token_bucket --capacity 5 --rate 1 --requests 8
  throttle test --algorithm leaky_bucket --capacity 10 --rate 2.5 --units 3 --interval 500ms
  throttle test --algorithm sliding_window_log --capacity 3 --window 10s --fast-forward 10s --json
  throttle test --config throttle.yaml --limiter login --keys alice,bob`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.requests < 0 {
				return errors.New("--requests must not be negative")
			}
			if params.interval < 0 || params.fastForward < 0 {
				return errors.New("--interval and --fast-forward must not be negative")
			}
			if recordPath != "" && params.units == 0 {
				return errors.New("--units 0 cannot be recorded: traffic files replay a zero or missing units field as 1")
			}
			if len(params.keys) == 0 {
				params.keys = []string{"test-user"}
			}

			def, err := lo.resolve(cmd, root)
			if err != nil {
				return err
			}

			vc := clock.NewVirtualClock(virtualStart())
			keyed, err := newKeyed(def, vc)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			collector := metrics.NewCollector(reg)
			rec := recorder.New(nil)

			root.logger.Info("running test scenario",
				"limiter", def.Name,
				"algorithm", def.Algorithm,
				"capacity", def.Capacity,
				"keys", len(params.keys),
				"requests", params.requests,
			)

			result := runTest(vc, keyed, params, func(step Step) {
				collector.Observe(def.Name, def.Algorithm, step.Decision)
				if err := rec.Record(recorder.TrafficRecord{Timestamp: step.Time, Key: step.Key, Units: step.Decision.Units}); err != nil {
					root.logger.Warn("recording step", "error", err)
				}
			})
			result.Limiter = def.Name
			result.Algorithm = string(def.Algorithm)
			result.Capacity = def.Capacity

			if recordPath != "" {
				if err := rec.ExportFile(recordPath); err != nil {
					return fmt.Errorf("writing recorded traffic: %w", err)
				}
				root.logger.Info("recorded traffic", "path", recordPath, "records", rec.Len())
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printTestResult(out, &result)
			}

			if showMetrics {
				return writeMetrics(out, reg)
			}
			return nil
		},
	}

	lo.addFlags(cmd)
	cmd.Flags().IntVar(&params.requests, "requests", 15, "number of requests to send per key per batch")
	cmd.Flags().Uint32Var(&params.units, "units", 1, "units requested by each acquire")
	cmd.Flags().StringSliceVar(&params.keys, "keys", nil, "comma-separated keys to test, each with its own limiter")
	cmd.Flags().DurationVar(&params.interval, "interval", 0, "virtual time between requests")
	cmd.Flags().DurationVar(&params.fastForward, "fast-forward", 0, "virtual time to skip before a second batch")
	cmd.Flags().StringVar(&recordPath, "record", "", "write the generated traffic to this file for later replay")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print Prometheus metrics after the run")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}

type testParams struct {
	keys        []string
	requests    int
	units       uint32
	interval    time.Duration
	fastForward time.Duration
}

// TestResult captures the full output of a test run.
type TestResult struct {
	Limiter     string                `json:"limiter"`
	Algorithm   string                `json:"algorithm"`
	Capacity    uint32                `json:"capacity"`
	FastForward string                `json:"fast_forward,omitempty"`
	Batches     []BatchResult         `json:"batches"`
	Summary     map[string]KeySummary `json:"summary"`
}

// BatchResult captures results for one batch of requests.
type BatchResult struct {
	Label string `json:"label"`
	Start string `json:"start"`
	Steps []Step `json:"steps"`
}

// Step is one refresh, status read and acquire.
type Step struct {
	Key      string           `json:"key"`
	Time     time.Time        `json:"time"`
	Status   limiter.Snapshot `json:"status"`
	Decision limiter.Decision `json:"decision"`
}

// KeySummary aggregates stats per key.
type KeySummary struct {
	TotalRequests int    `json:"total_requests"`
	Allowed       int    `json:"allowed"`
	Denied        int    `json:"denied"`
	AdmittedUnits uint64 `json:"admitted_units"`
}

func runTest(vc *clock.VirtualClock, keyed *limiter.Keyed, p testParams, observe func(Step)) TestResult {
	result := TestResult{Summary: make(map[string]KeySummary)}

	batch := func(label string) BatchResult {
		b := BatchResult{Label: label, Start: vc.Now().Format(time.RFC3339)}
		for i := 0; i < p.requests; i++ {
			for _, key := range p.keys {
				lim := keyed.Get(key)
				lim.Refresh()
				step := Step{Key: key, Time: vc.Now(), Status: lim.Snapshot()}
				step.Decision = lim.Acquire(p.units)
				b.Steps = append(b.Steps, step)

				s := result.Summary[key]
				s.TotalRequests++
				if step.Decision.Allowed {
					s.Allowed++
					s.AdmittedUnits += uint64(p.units)
				} else {
					s.Denied++
				}
				result.Summary[key] = s

				if observe != nil {
					observe(step)
				}
			}
			if p.interval > 0 {
				vc.Advance(p.interval)
			}
		}
		return b
	}

	result.Batches = append(result.Batches, batch("Initial requests"))

	if p.fastForward > 0 {
		vc.Advance(p.fastForward)
		result.FastForward = p.fastForward.String()
		result.Batches = append(result.Batches, batch(fmt.Sprintf("After fast-forward %s", p.fastForward)))
	}

	return result
}

func printTestResult(w io.Writer, r *TestResult) {
	fmt.Fprintf(w, "=== %s (%s, capacity %d) ===\n\n", r.Limiter, r.Algorithm, r.Capacity)

	for _, b := range r.Batches {
		fmt.Fprintf(w, "--- %s (at %s) ---\n", b.Label, b.Start)
		for i, s := range b.Steps {
			status := "ALLOW"
			if !s.Decision.Allowed {
				status = "DENY "
			}
			fmt.Fprintf(w, "  #%03d [%s] key=%s units=%d before=%d/%d after=%d/%d reset=%s\n",
				i+1, status, s.Key, s.Decision.Units,
				s.Status.Remaining, s.Status.Limit,
				s.Decision.Remaining, s.Decision.Limit,
				formatReset(s.Decision.ResetAt))
		}
		fmt.Fprintln(w)
	}

	keys := make([]string, 0, len(r.Summary))
	for k := range r.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "--- Summary ---")
	for _, key := range keys {
		s := r.Summary[key]
		fmt.Fprintf(w, "  %s: %d total, %d allowed, %d denied, %d units admitted\n",
			key, s.TotalRequests, s.Allowed, s.Denied, s.AdmittedUnits)
	}

	if r.FastForward == "" || len(r.Batches) < 2 {
		return
	}
	fmt.Fprintf(w, "\nTime travel: fast-forwarded %s\n", r.FastForward)

	denied, recovered := false, false
	for _, s := range r.Batches[0].Steps {
		if !s.Decision.Allowed {
			denied = true
			break
		}
	}
	for _, s := range r.Batches[1].Steps {
		if s.Decision.Allowed {
			recovered = true
			break
		}
	}
	if denied && recovered {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("=", 50))
		fmt.Fprintln(w, "Requests were denied, then admitted again after")
		fmt.Fprintln(w, "fast-forwarding the clock.")
		fmt.Fprintln(w, strings.Repeat("=", 50))
	}
}

func formatReset(at uint64) string {
	if at == limiter.Never {
		return "never"
	}
	return time.Unix(int64(at), 0).UTC().Format("15:04:05")
}
