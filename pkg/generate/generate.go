// Package generate builds synthetic traffic for replay.
package generate

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/SmitUplenchwar2687/throttle/pkg/recorder"
)

const (
	// PatternSteady generates evenly distributed traffic.
	PatternSteady = "steady"
	// PatternBurst generates clustered bursts with quiet gaps.
	PatternBurst = "burst"
	// PatternRamp generates traffic density that increases over time.
	PatternRamp = "ramp"
)

// Options controls how synthetic traffic is generated.
type Options struct {
	Count     int
	Keys      int
	Duration  time.Duration
	Pattern   string
	Start     time.Time // zero = now, truncated to the second
	Seed      int64     // zero = time based
	MaxUnits  uint32    // each record asks for 1..MaxUnits; zero = 1
	KeyPrefix string    // zero = "user-"
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		Count:    100,
		Keys:     3,
		Duration: 5 * time.Minute,
		Pattern:  PatternSteady,
		MaxUnits: 1,
	}
}

// GenerateTraffic creates synthetic traffic records. Burst records are not
// in timestamp order; replay sorts them.
func GenerateTraffic(opts *Options) ([]recorder.TrafficRecord, error) {
	if opts == nil {
		return nil, errors.New("options are required")
	}
	o := *opts
	if o.Count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", o.Count)
	}
	if o.Keys <= 0 {
		return nil, fmt.Errorf("keys must be positive, got %d", o.Keys)
	}
	if o.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", o.Duration)
	}

	switch o.Pattern {
	case "":
		o.Pattern = PatternSteady
	case PatternSteady, PatternBurst, PatternRamp:
	default:
		return nil, fmt.Errorf("unknown pattern %q, must be one of: steady, burst, ramp", o.Pattern)
	}
	if o.Start.IsZero() {
		o.Start = time.Now().Truncate(time.Second)
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.MaxUnits == 0 {
		o.MaxUnits = 1
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "user-"
	}

	g := &generator{
		rng:  rand.New(rand.NewSource(o.Seed)),
		opts: o,
		keys: makeKeys(o.KeyPrefix, o.Keys),
	}

	switch o.Pattern {
	case PatternBurst:
		return g.burst(), nil
	case PatternRamp:
		return g.ramp(), nil
	default:
		return g.steady(), nil
	}
}

func makeKeys(prefix string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return keys
}

type generator struct {
	rng  *rand.Rand
	opts Options
	keys []string
}

func (g *generator) record(at time.Time) recorder.TrafficRecord {
	return recorder.TrafficRecord{
		Timestamp: at,
		Key:       g.keys[g.rng.Intn(len(g.keys))],
		Units:     1 + uint32(g.rng.Int63n(int64(g.opts.MaxUnits))),
	}
}

func (g *generator) steady() []recorder.TrafficRecord {
	interval := g.opts.Duration / time.Duration(g.opts.Count)
	records := make([]recorder.TrafficRecord, g.opts.Count)
	for i := range records {
		records[i] = g.record(g.opts.Start.Add(time.Duration(i) * interval))
	}
	return records
}

func (g *generator) burst() []recorder.TrafficRecord {
	const bursts = 4
	records := make([]recorder.TrafficRecord, 0, g.opts.Count)
	size := g.opts.Count / bursts
	gap := g.opts.Duration / bursts

	for b := 0; b < bursts; b++ {
		burstStart := g.opts.Start.Add(time.Duration(b) * gap)
		for i := 0; i < size; i++ {
			// Requests within a burst land inside one second.
			offset := time.Duration(g.rng.Intn(1000)) * time.Millisecond
			records = append(records, g.record(burstStart.Add(offset)))
		}
	}

	for len(records) < g.opts.Count {
		records = append(records, g.record(g.opts.Start.Add(time.Duration(g.rng.Int63n(int64(g.opts.Duration))))))
	}
	return records
}

func (g *generator) ramp() []recorder.TrafficRecord {
	records := make([]recorder.TrafficRecord, 0, g.opts.Count)
	// Quadratic spacing concentrates records toward the end.
	for i := 0; i < g.opts.Count; i++ {
		frac := float64(i) / float64(g.opts.Count)
		records = append(records, g.record(g.opts.Start.Add(time.Duration(frac*frac*float64(g.opts.Duration)))))
	}
	return records
}
