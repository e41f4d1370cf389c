// Package metrics exposes decoder and session counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/core/decoder"
	"firestige.xyz/pktpeek/internal/session"
)

var (
	// PacketsTotal counts packets logged by direction
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktpeek_packets_total",
			Help: "Total number of packets logged",
		},
		[]string{"direction"},
	)

	// FieldsTotal counts classified fields by kind
	FieldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktpeek_fields_total",
			Help: "Total number of decoded fields",
		},
		[]string{"kind"},
	)

	// TruncatedTotal counts packets that hit the field cap
	TruncatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktpeek_truncated_total",
			Help: "Total number of packets whose decode stopped at the field cap",
		},
	)

	// SuppressedTotal counts packets dropped by the per-tag rate limit
	SuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pktpeek_suppressed_total",
			Help: "Total number of packets suppressed by the per-tag rate limit",
		},
	)

	// PacketBytes tracks the size distribution of logged packets
	PacketBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pktpeek_packet_bytes",
			Help:    "Size of logged packets in bytes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 17), // 1 .. 64KiB
		},
		[]string{"direction"},
	)

	// PipelinePacketsTotal counts packets through a pipeline by stage
	PipelinePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktpeek_pipeline_packets_total",
			Help: "Total number of packets handled by a pipeline",
		},
		[]string{"source", "stage"},
	)
)

// Pipeline stage label values.
const (
	StageReceived = "received"
	StageLogged   = "logged"
	StageEmpty    = "empty"
	StageFailed   = "failed"
)

func init() {
	// Export every kind at zero so dashboards see the full label set before
	// the first packet.
	for _, k := range decoder.Kinds() {
		FieldsTotal.WithLabelValues(k.String())
	}
}

// SessionObserver feeds session outcomes into the package collectors.
type SessionObserver struct{}

var _ session.Observer = SessionObserver{}

func (SessionObserver) ObservePacket(dir core.Direction, size int, res decoder.Result) {
	label := dir.String()
	PacketsTotal.WithLabelValues(label).Inc()
	PacketBytes.WithLabelValues(label).Observe(float64(size))
	for _, f := range res.Fields {
		FieldsTotal.WithLabelValues(f.Kind.String()).Inc()
	}
	if res.Truncated {
		TruncatedTotal.Inc()
	}
}

func (SessionObserver) ObserveSuppressed(core.Direction, byte) {
	SuppressedTotal.Inc()
}
