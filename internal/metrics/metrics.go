// Package metrics counts pipeline work. Collectors live on a dedicated
// registry so tests can read them without touching global state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsProcessed prometheus.Counter
	DocumentsFailed    prometheus.Counter
	FragmentsProcessed prometheus.Counter
	FragmentsFailed    prometheus.Counter
	EntriesStored      prometheus.Counter
	EntriesLinked      prometheus.Counter
	DocumentSeconds    prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		DocumentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_documents_processed_total",
			Help: "Documents fully processed, including those with failed fragments.",
		}),
		DocumentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_documents_failed_total",
			Help: "Documents aborted before fragment processing.",
		}),
		FragmentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_fragments_processed_total",
			Help: "Fragments normalized and stored.",
		}),
		FragmentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_fragments_failed_total",
			Help: "Fragments skipped after a storage failure.",
		}),
		EntriesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_entries_stored_total",
			Help: "Ledger entries written.",
		}),
		EntriesLinked: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_entries_linked_total",
			Help: "Pairs of entries linked by the equivalence oracle.",
		}),
		DocumentSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerline_document_seconds",
			Help:    "Wall time spent per document.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

// Registry exposes the collectors for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
