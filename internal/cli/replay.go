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
	"github.com/SmitUplenchwar2687/throttle/internal/metrics"
	"github.com/SmitUplenchwar2687/throttle/internal/recorder"
	"github.com/SmitUplenchwar2687/throttle/internal/replay"
)

func newReplayCmd(root *rootOptions) *cobra.Command {
	var (
		lo          limiterOptions
		file        string
		speed       float64
		pruneEvery  time.Duration
		keys        []string
		prefixes    []string
		showMetrics bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded traffic through a per-key limiter set",
		Long: `Replays previously recorded traffic through one limiter per key.

Records are replayed in timestamp order. The virtual clock advances by the
gap between records, so refill, leak and window expiry behave as they
would have at capture time, at any speed.

Speed: 0 = instant, 1 = real-time, 10 = 10x, 100 = 100x`,
		Example: `  throttle replay --file traffic.json
  throttle replay --file traffic.json --algorithm sliding_window_counter --capacity 20 --window 10s
  throttle replay --file traffic.json --config throttle.yaml --limiter api --keys user-1,user-2
  throttle replay --file traffic.json --speed 100 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
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

			records, err := recorder.LoadFile(file)
			if err != nil {
				return err
			}

			r := replay.New(keyed, vc,
				replay.WithSpeed(speed),
				replay.WithFilter(replay.Filter{Keys: keys, KeyPrefixes: prefixes}),
				replay.WithPruneEvery(pruneEvery),
				replay.WithLogger(root.logger),
			)
			r.LoadRecords(records)

			reg := prometheus.NewRegistry()
			collector := metrics.NewCollector(reg)

			out := cmd.OutOrStdout()
			var events *recorder.EventWriter
			if outputJSON {
				events = recorder.NewEventWriter(out)
			} else {
				fmt.Fprintf(out, "Replaying %s through %s (%s) at %gx speed...\n\n", file, def.Name, def.Algorithm, speed)
			}

			var writeErr error
			summary, err := r.Run(cmd.Context(), func(ev recorder.DecisionEvent) {
				collector.Observe(def.Name, def.Algorithm, ev.Decision)
				if events != nil {
					if err := events.Write(ev); err != nil && writeErr == nil {
						writeErr = err
					}
					return
				}
				status := "ALLOW"
				if !ev.Decision.Allowed {
					status = "DENY "
				}
				fmt.Fprintf(out, "  [%s] %s key=%s units=%d remaining=%d/%d\n",
					status,
					ev.Record.Timestamp.Format("15:04:05"),
					ev.Record.Key,
					ev.Decision.Units,
					ev.Decision.Remaining,
					ev.Decision.Limit)
			})
			if err != nil {
				return err
			}
			if writeErr != nil {
				return fmt.Errorf("writing events: %w", writeErr)
			}

			root.logger.Info("replay finished",
				"replayed", summary.Replayed,
				"allowed", summary.Allowed,
				"denied", summary.Denied,
			)

			if outputJSON {
				if err := json.NewEncoder(out).Encode(map[string]*replay.Summary{"summary": summary}); err != nil {
					return err
				}
			} else {
				printReplaySummary(out, summary)
			}

			if showMetrics {
				return writeMetrics(out, reg)
			}
			return nil
		},
	}

	lo.addFlags(cmd)
	cmd.Flags().StringVar(&file, "file", "", "path to recorded traffic (JSON array or NDJSON, required)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "replay speed (0=instant, 1=real-time, 10=10x)")
	cmd.Flags().DurationVar(&pruneEvery, "prune-every", 0, "drop idle per-key limiters each time virtual time moves this much (0 = never)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "only replay these keys (comma-separated)")
	cmd.Flags().StringSliceVar(&prefixes, "key-prefixes", nil, "only replay keys with these prefixes (comma-separated)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print Prometheus metrics after the run")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output decision events and summary as newline-delimited JSON")

	return cmd
}

func printReplaySummary(w io.Writer, s *replay.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Replay Summary ---")
	fmt.Fprintf(w, "  Total records:  %d\n", s.TotalRecords)
	fmt.Fprintf(w, "  Filtered:       %d\n", s.Filtered)
	fmt.Fprintf(w, "  Replayed:       %d\n", s.Replayed)
	fmt.Fprintf(w, "  Allowed:        %d (%d units)\n", s.Allowed, s.AdmittedUnits)
	fmt.Fprintf(w, "  Denied:         %d (%d units)\n", s.Denied, s.RejectedUnits)
	if s.Pruned > 0 {
		fmt.Fprintf(w, "  Pruned keys:    %d\n", s.Pruned)
	}
	fmt.Fprintf(w, "  Virtual time:   %s\n", s.Duration)
	fmt.Fprintf(w, "  Wall time:      %s\n", s.WallDuration.Round(time.Millisecond))

	if len(s.PerKey) > 1 {
		keys := make([]string, 0, len(s.PerKey))
		for k := range s.PerKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Per key:")
		for _, key := range keys {
			ks := s.PerKey[key]
			fmt.Fprintf(w, "    %s: %d allowed, %d denied\n", key, ks.Allowed, ks.Denied)
		}
	}

	if s.Denied > 0 && s.Allowed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("=", 50))
		denyRate := float64(s.Denied) / float64(s.Replayed) * 100
		fmt.Fprintf(w, "Deny rate: %.1f%% (%d/%d requests denied)\n", denyRate, s.Denied, s.Replayed)
		fmt.Fprintln(w, strings.Repeat("=", 50))
	}
}
