package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
	"github.com/SmitUplenchwar2687/throttle/internal/logging"
	"github.com/SmitUplenchwar2687/throttle/internal/recorder"
)

// ErrNoRecords is returned by Run when nothing was loaded.
var ErrNoRecords = errors.New("no records loaded")

// Replayer replays recorded traffic through a per-key limiter set, driving
// a virtual clock so time-based refill and expiry behave as they did when
// the traffic was captured.
type Replayer struct {
	records []recorder.TrafficRecord
	keyed   *limiter.Keyed
	clock   *clock.VirtualClock
	filter  Filter
	speed   float64 // 0 = instant, 1 = real time, 10 = 10x
	prune   time.Duration
	logger  *slog.Logger
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithSpeed sleeps between records for the gap scaled down by speed.
// Zero or negative replays instantly.
func WithSpeed(speed float64) Option {
	return func(r *Replayer) {
		if speed > 0 {
			r.speed = speed
		}
	}
}

// WithFilter restricts which records are replayed.
func WithFilter(f Filter) Option {
	return func(r *Replayer) { r.filter = f }
}

// WithPruneEvery drops idle keys from the limiter set each time the
// virtual clock has moved by at least every. Zero disables pruning.
func WithPruneEvery(every time.Duration) Option {
	return func(r *Replayer) {
		if every > 0 {
			r.prune = every
		}
	}
}

// WithLogger sets the logger used for per-record debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.logger = l
		}
	}
}

// Summary aggregates replay statistics.
type Summary struct {
	TotalRecords  int                   `json:"total_records"`
	Filtered      int                   `json:"filtered"`
	Replayed      int                   `json:"replayed"`
	Allowed       int                   `json:"allowed"`
	Denied        int                   `json:"denied"`
	AdmittedUnits uint64                `json:"admitted_units"`
	RejectedUnits uint64                `json:"rejected_units"`
	Pruned        int                   `json:"pruned"`
	Duration      time.Duration         `json:"duration"`      // virtual time span
	WallDuration  time.Duration         `json:"wall_duration"` // actual elapsed time
	PerKey        map[string]KeySummary `json:"per_key"`
}

// KeySummary has per-key stats.
type KeySummary struct {
	Allowed       int    `json:"allowed"`
	Denied        int    `json:"denied"`
	AdmittedUnits uint64 `json:"admitted_units"`
	RejectedUnits uint64 `json:"rejected_units"`
}

func (s *Summary) add(rec recorder.TrafficRecord, d limiter.Decision) {
	s.Replayed++
	ks := s.PerKey[rec.Key]
	if d.Allowed {
		s.Allowed++
		s.AdmittedUnits += uint64(d.Units)
		ks.Allowed++
		ks.AdmittedUnits += uint64(d.Units)
	} else {
		s.Denied++
		s.RejectedUnits += uint64(d.Units)
		ks.Denied++
		ks.RejectedUnits += uint64(d.Units)
	}
	s.PerKey[rec.Key] = ks
}

// New creates a replayer. keyed must read time from vc, e.g. built with
// limiter.WithClock(vc).
func New(keyed *limiter.Keyed, vc *clock.VirtualClock, opts ...Option) *Replayer {
	r := &Replayer{
		keyed:  keyed,
		clock:  vc,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads traffic records from a JSON array or NDJSON stream.
func (r *Replayer) Load(reader io.Reader) error {
	records, err := recorder.LoadJSON(reader)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	r.records = records
	return nil
}

// LoadRecords sets the records directly.
func (r *Replayer) LoadRecords(records []recorder.TrafficRecord) {
	r.records = make([]recorder.TrafficRecord, len(records))
	copy(r.records, records)
}

// Run replays the loaded records in timestamp order. cb, if non-nil, is
// called with every decision. On cancellation the partial summary is
// returned with ctx.Err().
func (r *Replayer) Run(ctx context.Context, cb func(recorder.DecisionEvent)) (*Summary, error) {
	if len(r.records) == 0 {
		return nil, ErrNoRecords
	}

	sorted := make([]recorder.TrafficRecord, len(r.records))
	copy(sorted, r.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var filtered []recorder.TrafficRecord
	for _, rec := range sorted {
		if r.filter.Match(rec) {
			filtered = append(filtered, rec)
		}
	}

	summary := &Summary{
		TotalRecords: len(sorted),
		Filtered:     len(filtered),
		PerKey:       make(map[string]KeySummary),
	}
	if len(filtered) == 0 {
		return summary, nil
	}

	wallStart := time.Now()
	lastPrune := r.clock.Now()
	for i, rec := range filtered {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if i > 0 {
			if gap := rec.Timestamp.Sub(filtered[i-1].Timestamp); gap > 0 {
				if err := r.wait(ctx, gap); err != nil {
					return summary, err
				}
				r.clock.Advance(gap)
			}
		}

		if r.prune > 0 && r.clock.Since(lastPrune) >= r.prune {
			n := r.keyed.Prune()
			summary.Pruned += n
			lastPrune = r.clock.Now()
			r.logger.Debug("pruned idle keys", "removed", n, "remaining", r.keyed.Len())
		}

		d := r.keyed.Acquire(rec.Key, rec.Cost())
		summary.add(rec, d)
		r.logger.Debug("replayed record",
			"key", rec.Key,
			"units", d.Units,
			"allowed", d.Allowed,
			"remaining", d.Remaining,
		)

		if cb != nil {
			cb(recorder.DecisionEvent{Record: rec, Decision: d, Time: r.clock.Now()})
		}
	}

	summary.Duration = filtered[len(filtered)-1].Timestamp.Sub(filtered[0].Timestamp)
	summary.WallDuration = time.Since(wallStart)
	return summary, nil
}

// wait sleeps for the scaled gap in wall time. Gaps under a millisecond
// are skipped.
func (r *Replayer) wait(ctx context.Context, gap time.Duration) error {
	if r.speed <= 0 {
		return nil
	}
	scaled := time.Duration(float64(gap) / r.speed)
	if scaled <= time.Millisecond {
		return nil
	}
	t := time.NewTimer(scaled)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
