package pipeline

import (
	"sync/atomic"

	"firestige.xyz/pktpeek/internal/metrics"
)

// Metrics contains per-pipeline counters. Each update is mirrored to the
// process-wide Prometheus collectors.
type Metrics struct {
	Source string

	Received atomic.Uint64
	Logged   atomic.Uint64
	Empty    atomic.Uint64
	Failed   atomic.Uint64
}

// Stats is a point-in-time copy of Metrics.
type Stats struct {
	Received uint64
	Logged   uint64
	Empty    uint64
	Failed   uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(source string) *Metrics {
	return &Metrics{Source: source}
}

func (m *Metrics) received() {
	m.Received.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(m.Source, metrics.StageReceived).Inc()
}

func (m *Metrics) logged() {
	m.Logged.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(m.Source, metrics.StageLogged).Inc()
}

func (m *Metrics) empty() {
	m.Empty.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(m.Source, metrics.StageEmpty).Inc()
}

func (m *Metrics) failed() {
	m.Failed.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(m.Source, metrics.StageFailed).Inc()
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		Received: m.Received.Load(),
		Logged:   m.Logged.Load(),
		Empty:    m.Empty.Load(),
		Failed:   m.Failed.Load(),
	}
}
