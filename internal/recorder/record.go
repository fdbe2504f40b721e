package recorder

import (
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
)

// TrafficRecord is a single captured acquire attempt.
type TrafficRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Key       string            `json:"key"`             // user ID, API key, IP, ...
	Units     uint32            `json:"units,omitempty"` // 0 means 1
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Cost is the number of units the record asks for.
func (r TrafficRecord) Cost() uint32 {
	if r.Units == 0 {
		return 1
	}
	return r.Units
}

// DecisionEvent pairs a traffic record with the decision it produced.
type DecisionEvent struct {
	Record   TrafficRecord    `json:"record"`
	Decision limiter.Decision `json:"decision"`
	Time     time.Time        `json:"time"`
}
