// Package observability holds the Prometheus collector and OpenTelemetry
// tracer setup shared by the pipeline packages.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the pipeline metrics on a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Ingestion metrics
	NodesAccepted *prometheus.CounterVec
	NodesSkipped  *prometheus.CounterVec
	EdgesAccepted *prometheus.CounterVec
	EdgesSkipped  *prometheus.CounterVec
	EdgesDropped  *prometheus.CounterVec

	// Expansion metrics
	Rounds *prometheus.CounterVec

	// Collaborator metrics
	CallDuration *prometheus.HistogramVec
}

// NewCollector creates a collector whose metric names carry namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	byProvenance := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help},
			[]string{"provenance"},
		)
	}

	c := &Collector{
		registry:      registry,
		NodesAccepted: byProvenance("nodes_accepted_total", "Candidate nodes merged into the graph"),
		NodesSkipped:  byProvenance("nodes_skipped_total", "Candidate nodes rejected as malformed or duplicate"),
		EdgesAccepted: byProvenance("edges_accepted_total", "Candidate edges merged into the graph"),
		EdgesSkipped:  byProvenance("edges_skipped_total", "Candidate edges rejected as malformed"),
		EdgesDropped:  byProvenance("edges_dropped_total", "Candidate edges dropped for an unknown endpoint"),
		Rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expansion_rounds_total",
				Help:      "Expansion rounds by outcome",
			},
			[]string{"outcome"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "collaborator_call_duration_seconds",
				Help:      "Candidate-generation call latency in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation", "status"},
		),
	}

	registry.MustRegister(
		c.NodesAccepted,
		c.NodesSkipped,
		c.EdgesAccepted,
		c.EdgesSkipped,
		c.EdgesDropped,
		c.Rounds,
		c.CallDuration,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordIngest adds one validated batch to the ingestion counters.
func (c *Collector) RecordIngest(provenance string, nodes, skippedNodes, edges, skippedEdges, droppedEdges int) {
	if c == nil {
		return
	}
	c.NodesAccepted.WithLabelValues(provenance).Add(float64(nodes))
	c.NodesSkipped.WithLabelValues(provenance).Add(float64(skippedNodes))
	c.EdgesAccepted.WithLabelValues(provenance).Add(float64(edges))
	c.EdgesSkipped.WithLabelValues(provenance).Add(float64(skippedEdges))
	c.EdgesDropped.WithLabelValues(provenance).Add(float64(droppedEdges))
}

// RecordRound counts one expansion round. outcome is "progress", "empty" or
// "failed".
func (c *Collector) RecordRound(outcome string) {
	if c == nil {
		return
	}
	c.Rounds.WithLabelValues(outcome).Inc()
}

// RecordCall observes one collaborator call.
func (c *Collector) RecordCall(operation string, d time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.CallDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the node-exporter textfile
// collector format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
