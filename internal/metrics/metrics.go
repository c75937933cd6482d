// Package metrics counts what a collect run emitted and skipped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Type outcomes.
const (
	TypeEmitted    = "emitted"
	TypeOmitted    = "omitted"
	TypeUnresolved = "unresolved"
)

// Member skip reasons.
const (
	SkipUndocumented = "undocumented"
	SkipMalformed    = "malformed"
	SkipMemberName   = "member_filter"
	SkipOwner        = "owner_filter"
	SkipDuplicate    = "duplicate"
)

// Collector holds the apidoc metrics on a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry   *prometheus.Registry
	types      *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	documented prometheus.Counter
	duration   prometheus.Histogram
}

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		types: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apidoc",
			Name:      "types_total",
			Help:      "Configured types processed, by outcome.",
		}, []string{"result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apidoc",
			Name:      "members_skipped_total",
			Help:      "Members left out of the tree, by reason.",
		}, []string{"reason"}),
		documented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apidoc",
			Name:      "members_documented_total",
			Help:      "Members written to the tree.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apidoc",
			Name:      "collect_duration_seconds",
			Help:      "Duration of a collect run.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	c.registry.MustRegister(c.types, c.skipped, c.documented, c.duration)
	return c
}

// Registry exposes the registry for export or inspection.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// TypeResult counts one requested type by outcome, e.g. TypeEmitted.
func (c *Collector) TypeResult(result string) {
	if c == nil {
		return
	}
	c.types.WithLabelValues(result).Inc()
}

// MemberSkipped counts a member dropped for reason, e.g. SkipOwner.
func (c *Collector) MemberSkipped(reason string) {
	if c == nil {
		return
	}
	c.skipped.WithLabelValues(reason).Inc()
}

// MemberDocumented counts a member emitted with parsed documentation.
func (c *Collector) MemberDocumented() {
	if c == nil {
		return
	}
	c.documented.Inc()
}

// ObserveCollect records the duration of one collect run.
func (c *Collector) ObserveCollect(d time.Duration) {
	if c == nil {
		return
	}
	c.duration.Observe(d.Seconds())
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
