// Package metrics instruments limiters with Prometheus collectors.
//
// Collectors are registered on a caller-supplied Registerer; nothing is
// exposed over the network. Gather from the registry to read the values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
)

const (
	resultAdmitted = "admitted"
	resultRejected = "rejected"
)

// Collector holds the Prometheus metrics shared by every instrumented limiter.
type Collector struct {
	acquires  *prometheus.CounterVec
	units     *prometheus.CounterVec
	remaining *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		acquires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "throttle_acquire_total",
				Help: "Total number of acquire attempts",
			},
			[]string{"limiter", "algorithm", "result"},
		),
		units: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "throttle_acquire_units_total",
				Help: "Total number of units requested by acquire attempts",
			},
			[]string{"limiter", "algorithm", "result"},
		),
		remaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "throttle_remaining_units",
				Help: "Units remaining after the most recent acquire or refresh",
			},
			[]string{"limiter", "algorithm"},
		),
	}
}

// Instrument wraps lim so every TryAcquire and Refresh is recorded under
// the given limiter name and algorithm labels. The wrapper adds no locking;
// instrument a Shared when the limiter is used concurrently.
func (c *Collector) Instrument(name string, algorithm limiter.Algorithm, lim limiter.Limiter) limiter.Limiter {
	algo := string(algorithm)
	return &instrumented{
		Limiter:   lim,
		admitted:  c.acquires.WithLabelValues(name, algo, resultAdmitted),
		rejected:  c.acquires.WithLabelValues(name, algo, resultRejected),
		admittedU: c.units.WithLabelValues(name, algo, resultAdmitted),
		rejectedU: c.units.WithLabelValues(name, algo, resultRejected),
		remaining: c.remaining.WithLabelValues(name, algo),
	}
}

// Observe records a decision made outside an instrumented limiter, e.g. by
// Shared.Acquire or a Keyed set.
func (c *Collector) Observe(name string, algorithm limiter.Algorithm, d limiter.Decision) {
	algo := string(algorithm)
	result := resultRejected
	if d.Allowed {
		result = resultAdmitted
	}
	c.acquires.WithLabelValues(name, algo, result).Inc()
	c.units.WithLabelValues(name, algo, result).Add(float64(d.Units))
	c.remaining.WithLabelValues(name, algo).Set(float64(d.Remaining))
}

type instrumented struct {
	limiter.Limiter

	admitted, rejected   prometheus.Counter
	admittedU, rejectedU prometheus.Counter
	remaining            prometheus.Gauge
}

func (i *instrumented) TryAcquire(units uint32) bool {
	ok := i.Limiter.TryAcquire(units)
	if ok {
		i.admitted.Inc()
		i.admittedU.Add(float64(units))
	} else {
		i.rejected.Inc()
		i.rejectedU.Add(float64(units))
	}
	i.remaining.Set(float64(i.Limiter.Remaining()))
	return ok
}

func (i *instrumented) Refresh() {
	i.Limiter.Refresh()
	i.remaining.Set(float64(i.Limiter.Remaining()))
}
