// Package lockmetrics instruments the synchronization primitives with
// Prometheus metrics, grounded on the same RED-method shape (count,
// duration, error count, error duration) this corpus uses for operation
// instrumentation elsewhere, narrowed to what a lock actually needs:
// how many holders are active, how long acquire waited, and how often
// acquire ended in cancellation or disposal instead of a grant.
package lockmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome classifies how an acquire attempt ended, for the acquires_total
// counter's "outcome" label.
type Outcome string

const (
	OutcomeGranted   Outcome = "granted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeDisposed  Outcome = "disposed"
)

// Collector holds the metric vectors shared by every instance of one
// primitive kind (e.g. all AsyncSemaphore values in a process). Construct
// one Collector per primitive kind and pass it to that primitive's
// WithMetrics option; instances distinguish themselves via the "name"
// label, bound once per instance through For.
type Collector struct {
	primitive string

	acquires    *prometheus.CounterVec
	waitSeconds *prometheus.HistogramVec
	held        *prometheus.GaugeVec
	queued      *prometheus.GaugeVec
}

// NewCollector creates a Collector for one primitive kind (e.g.
// "semaphore", "rwlock", "keyedlock"). Register it with a
// prometheus.Registerer before use.
func NewCollector(primitive string) *Collector {
	c := &Collector{primitive: primitive}

	c.acquires = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "asynclock",
		Subsystem: primitive,
		Name:      "acquires_total",
		Help:      "Acquire attempts, partitioned by outcome.",
	}, []string{"name", "outcome"})

	c.waitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "asynclock",
		Subsystem: primitive,
		Name:      "acquire_wait_seconds",
		Help:      "Time spent suspended before an acquire was granted.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"name"})

	c.held = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "asynclock",
		Subsystem: primitive,
		Name:      "held",
		Help:      "Current number of held units (permits, readers, active side count).",
	}, []string{"name"})

	c.queued = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "asynclock",
		Subsystem: primitive,
		Name:      "queued",
		Help:      "Current number of suspended waiters.",
	}, []string{"name"})

	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.acquires.Describe(ch)
	c.waitSeconds.Describe(ch)
	c.held.Describe(ch)
	c.queued.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.acquires.Collect(ch)
	c.waitSeconds.Collect(ch)
	c.held.Collect(ch)
	c.queued.Collect(ch)
}

// Instance is the per-named-value handle a primitive instance uses to
// report its own events, so call sites don't repeat a "name" label value
// on every call.
type Instance struct {
	c    *Collector
	name string
}

// For returns the Instance that an AsyncSemaphore/AsyncReadWriteLock/etc.
// named name should report through.
func (c *Collector) For(name string) *Instance {
	return &Instance{c: c, name: name}
}

// ObserveAcquire records the outcome of one acquire attempt and, for a
// granted acquire, how long it waited.
func (i *Instance) ObserveAcquire(outcome Outcome, waited time.Duration) {
	i.c.acquires.WithLabelValues(i.name, string(outcome)).Inc()
	if outcome == OutcomeGranted {
		i.c.waitSeconds.WithLabelValues(i.name).Observe(waited.Seconds())
	}
}

// SetHeld reports the current number of held units.
func (i *Instance) SetHeld(n float64) {
	i.c.held.WithLabelValues(i.name).Set(n)
}

// SetQueued reports the current number of suspended waiters.
func (i *Instance) SetQueued(n float64) {
	i.c.queued.WithLabelValues(i.name).Set(n)
}
