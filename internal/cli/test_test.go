package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
	"github.com/SmitUplenchwar2687/throttle/internal/recorder"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func keyedFor(t *testing.T, vc *clock.VirtualClock, cfg limiter.Config) *limiter.Keyed {
	t.Helper()
	k, err := limiter.NewKeyed(cfg, limiter.WithClock(vc))
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, args...)
	return out, err
}

func TestRunTest_TokenBucket(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	keyed := keyedFor(t, vc, limiter.Config{Algorithm: limiter.AlgorithmTokenBucket, Capacity: 5, Rate: 1})

	result := runTest(vc, keyed, testParams{keys: []string{"user1"}, requests: 10, units: 1}, nil)

	if len(result.Batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(result.Batches))
	}
	s := result.Summary["user1"]
	if s.TotalRequests != 10 || s.Allowed != 5 || s.Denied != 5 {
		t.Errorf("summary = %+v, want 10 total, 5 allowed, 5 denied", s)
	}
}

func TestRunTest_StatusIsReadBeforeAcquire(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	keyed := keyedFor(t, vc, limiter.Config{Algorithm: limiter.AlgorithmFixedWindow, Capacity: 3, Window: time.Minute})

	result := runTest(vc, keyed, testParams{keys: []string{"k"}, requests: 4, units: 1}, nil)

	steps := result.Batches[0].Steps
	wantBefore := []uint32{3, 2, 1, 0}
	for i, s := range steps {
		if s.Status.Remaining != wantBefore[i] {
			t.Errorf("step %d: status remaining = %d, want %d", i, s.Status.Remaining, wantBefore[i])
		}
	}
	if steps[3].Decision.Allowed {
		t.Error("fourth request should be denied")
	}
}

func TestRunTest_IntervalAdvancesClock(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	keyed := keyedFor(t, vc, limiter.Config{Algorithm: limiter.AlgorithmTokenBucket, Capacity: 1, Rate: 1})

	result := runTest(vc, keyed, testParams{
		keys:     []string{"k"},
		requests: 5,
		units:    1,
		interval: time.Second,
	}, nil)

	if s := result.Summary["k"]; s.Allowed != 5 {
		t.Errorf("allowed = %d, want 5 (one token refills per interval)", s.Allowed)
	}
	if got := result.Batches[0].Steps[4].Time; !got.Equal(epoch.Add(4 * time.Second)) {
		t.Errorf("last step time = %v, want epoch+4s", got)
	}
}

func TestRunTest_WithFastForward(t *testing.T) {
	for _, cfg := range []limiter.Config{
		{Algorithm: limiter.AlgorithmFixedWindow, Capacity: 5, Window: time.Minute},
		{Algorithm: limiter.AlgorithmSlidingWindowCounter, Capacity: 5, Window: time.Minute},
		{Algorithm: limiter.AlgorithmSlidingWindowLog, Capacity: 5, Window: time.Minute},
		{Algorithm: limiter.AlgorithmLeakyBucket, Capacity: 5, Rate: 1},
	} {
		t.Run(string(cfg.Algorithm), func(t *testing.T) {
			vc := clock.NewVirtualClock(epoch)
			result := runTest(vc, keyedFor(t, vc, cfg), testParams{
				keys:        []string{"user1"},
				requests:    8,
				units:       1,
				fastForward: 2 * time.Minute,
			}, nil)

			if len(result.Batches) != 2 {
				t.Fatalf("expected 2 batches, got %d", len(result.Batches))
			}
			if result.FastForward != "2m0s" {
				t.Errorf("fast_forward = %q, want 2m0s", result.FastForward)
			}
			s := result.Summary["user1"]
			if s.Allowed != 10 || s.Denied != 6 {
				t.Errorf("allowed/denied = %d/%d, want 10/6", s.Allowed, s.Denied)
			}
		})
	}
}

func TestRunTest_MultipleKeysAndObserver(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	keyed := keyedFor(t, vc, limiter.Config{Algorithm: limiter.AlgorithmTokenBucket, Capacity: 6, Rate: 0})

	observed := 0
	result := runTest(vc, keyed, testParams{keys: []string{"user1", "user2"}, requests: 5, units: 2}, func(Step) {
		observed++
	})

	if observed != 10 {
		t.Errorf("observer called %d times, want 10", observed)
	}
	for _, key := range []string{"user1", "user2"} {
		s := result.Summary[key]
		if s.Allowed != 3 || s.Denied != 2 || s.AdmittedUnits != 6 {
			t.Errorf("%s: %+v, want 3 allowed (6 units), 2 denied", key, s)
		}
	}
}

func TestTestCmd_JSON(t *testing.T) {
	out, err := execute(t, "test", "--algorithm", "fixed_window", "--capacity", "2", "--requests", "3", "--json")
	if err != nil {
		t.Fatalf("test command failed: %v", err)
	}

	var result TestResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if result.Algorithm != "fixed_window" || result.Capacity != 2 {
		t.Errorf("result header = %s/%d", result.Algorithm, result.Capacity)
	}
	if s := result.Summary["test-user"]; s.Allowed != 2 || s.Denied != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestTestCmd_AllAlgorithms(t *testing.T) {
	for _, algo := range limiter.Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			if _, err := execute(t, "test", "--algorithm", string(algo), "--requests", "3", "--window", "2s"); err != nil {
				t.Fatalf("test command with %s failed: %v", algo, err)
			}
		})
	}
}

func TestTestCmd_TextOutputAndMetrics(t *testing.T) {
	out, err := execute(t, "test", "--capacity", "2", "--rate", "1", "--requests", "3",
		"--fast-forward", "1h", "--metrics")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[DENY ]", "fast-forwarded 1h0m0s", "throttle_acquire_total", `result="admitted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTestCmd_InvalidInput(t *testing.T) {
	tests := [][]string{
		{"test", "--algorithm", "bogus"},
		{"test", "--algorithm", "token_bucket", "--rate", "0.5"},
		{"test", "--algorithm", "sliding_window_log", "--window", "1500ms"},
		{"test", "--requests", "-1"},
		{"test", "--limiter", "api"},
		{"test", "--log-level", "loud"},
	}
	for _, args := range tests {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestTestCmd_LoadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "throttle.yaml")
	content := `limiters:
  - name: api
    algorithm: token_bucket
    capacity: 10
    rate: 1
  - name: login
    algorithm: fixed_window
    capacity: 2
    window: 1m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "test", "--config", path, "--limiter", "login", "--requests", "3", "--json")
	if err != nil {
		t.Fatalf("test command with config failed: %v", err)
	}
	var result TestResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatal(err)
	}
	if result.Limiter != "login" || result.Summary["test-user"].Allowed != 2 {
		t.Errorf("result = %+v", result)
	}

	// An explicit flag overrides the config entry.
	out, err = execute(t, "test", "--config", path, "--limiter", "login", "--capacity", "3", "--requests", "3", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatal(err)
	}
	if result.Summary["test-user"].Allowed != 3 {
		t.Errorf("allowed = %d, want 3 with --capacity override", result.Summary["test-user"].Allowed)
	}

	if _, err := execute(t, "test", "--config", path, "--limiter", "missing"); err == nil {
		t.Error("expected error for unknown limiter name")
	}
}

func TestTestCmd_RecordThenReplay(t *testing.T) {
	dir := t.TempDir()
	traffic := filepath.Join(dir, "traffic.json")

	if _, err := execute(t, "test", "--capacity", "3", "--requests", "5", "--keys", "a,b",
		"--interval", "100ms", "--record", traffic); err != nil {
		t.Fatal(err)
	}

	records, err := recorder.LoadFile(traffic)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 10 {
		t.Fatalf("recorded %d records, want 10", len(records))
	}

	out, err := execute(t, "replay", "--file", traffic, "--capacity", "3", "--rate", "0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Replayed:       10") {
		t.Errorf("replay output:\n%s", out)
	}
}

func TestTestCmd_RefusesToRecordZeroUnits(t *testing.T) {
	traffic := filepath.Join(t.TempDir(), "traffic.json")

	if _, err := execute(t, "test", "--units", "0", "--requests", "3", "--record", traffic); err == nil {
		t.Fatal("expected error recording zero-unit acquires")
	}
	if _, err := os.Stat(traffic); !os.IsNotExist(err) {
		t.Errorf("traffic file should not be written, stat err = %v", err)
	}

	// Without --record, zero-unit acquires still run and are all admitted.
	out, err := execute(t, "test", "--units", "0", "--capacity", "1", "--requests", "3", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var result TestResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if s := result.Summary["test-user"]; s.Allowed != 3 || s.Denied != 0 {
		t.Errorf("summary = %+v, want 3 allowed", s)
	}
}
