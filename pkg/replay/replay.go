package replay

import (
	"log/slog"
	"time"

	internalreplay "github.com/SmitUplenchwar2687/throttle/internal/replay"
	"github.com/SmitUplenchwar2687/throttle/pkg/clock"
	"github.com/SmitUplenchwar2687/throttle/pkg/limiter"
)

// Filter defines criteria for selecting traffic records during replay.
type Filter = internalreplay.Filter

// Replayer replays recorded traffic through a per-key limiter set.
type Replayer = internalreplay.Replayer

// Option configures a Replayer.
type Option = internalreplay.Option

// Summary aggregates replay statistics.
type Summary = internalreplay.Summary

// KeySummary holds per-key replay stats.
type KeySummary = internalreplay.KeySummary

// ErrNoRecords is returned by Run when nothing was loaded.
var ErrNoRecords = internalreplay.ErrNoRecords

// New creates a replayer. keyed must be built with limiter.WithClock(vc).
func New(keyed *limiter.Keyed, vc *clock.VirtualClock, opts ...Option) *Replayer {
	return internalreplay.New(keyed, vc, opts...)
}

// WithSpeed sleeps between records for the gap scaled down by speed.
func WithSpeed(speed float64) Option { return internalreplay.WithSpeed(speed) }

// WithFilter restricts which records are replayed.
func WithFilter(f Filter) Option { return internalreplay.WithFilter(f) }

// WithPruneEvery drops idle keys each time virtual time moves by every.
func WithPruneEvery(every time.Duration) Option { return internalreplay.WithPruneEvery(every) }

// WithLogger sets the logger used for per-record debug output.
func WithLogger(l *slog.Logger) Option { return internalreplay.WithLogger(l) }
