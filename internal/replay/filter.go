package replay

import (
	"slices"
	"strings"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/recorder"
)

// Filter defines criteria for selecting traffic records during replay.
// A zero Filter matches everything.
type Filter struct {
	Keys        []string  // only these keys (empty = all)
	KeyPrefixes []string  // only keys with one of these prefixes (empty = all)
	After       time.Time // only records strictly after this time (zero = no limit)
	Before      time.Time // only records strictly before this time (zero = no limit)
}

// Match reports whether the record passes the filter.
func (f Filter) Match(r recorder.TrafficRecord) bool {
	if len(f.Keys) > 0 && !slices.Contains(f.Keys, r.Key) {
		return false
	}
	if len(f.KeyPrefixes) > 0 && !hasAnyPrefix(r.Key, f.KeyPrefixes) {
		return false
	}
	if !f.After.IsZero() && !r.Timestamp.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !r.Timestamp.Before(f.Before) {
		return false
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
