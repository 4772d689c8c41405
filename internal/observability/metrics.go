package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
)

// Metrics holds the Prometheus metrics for measured chunks
type Metrics struct {
	registry *prometheus.Registry

	chunkBytes      *prometheus.GaugeVec
	mismatchesTotal *prometheus.CounterVec
	chunksTotal     *prometheus.CounterVec
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		chunkBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bundlesize_chunk_bytes",
				Help: "Measured chunk size in bytes",
			},
			[]string{"chunk", "kind"},
		),
		mismatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlesize_snapshot_mismatches_total",
				Help: "Number of chunks that did not match their snapshot entry",
			},
			[]string{"chunk"},
		),
		chunksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlesize_chunks_total",
				Help: "Number of processed chunks by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordSizes sets one gauge per numeric leaf of rec
func (m *Metrics) RecordSizes(chunk string, rec snapshot.Record) {
	for _, leaf := range rec.Leaves() {
		m.chunkBytes.WithLabelValues(chunk, leaf.Path).Set(float64(leaf.Value))
	}
}

// RecordMismatch counts a snapshot mismatch for chunk
func (m *Metrics) RecordMismatch(chunk string) {
	m.mismatchesTotal.WithLabelValues(chunk).Inc()
}

// RecordOutcome counts a processed chunk. outcome is one of "written",
// "matched", "adopted" or "failed".
func (m *Metrics) RecordOutcome(outcome string) {
	m.chunksTotal.WithLabelValues(outcome).Inc()
}

// Gatherer exposes the registry for export
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics to path in the text exposition
// format, for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
