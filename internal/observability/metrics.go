package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and the retrieval path.
type Metrics struct {
	RecordsRead       prometheus.Counter
	RecordsNormalized prometheus.Counter
	RecordsDropped    *prometheus.CounterVec // label: reason
	PointsUpserted    *prometheus.CounterVec // label: collection
	IngestRunning     prometheus.Gauge

	// Batch processing metrics.
	BatchSize          prometheus.Histogram
	BatchUpsertSeconds prometheus.Histogram

	// Embedding metrics.
	EmbedRequests *prometheus.CounterVec // labels: outcome={success,error}
	EmbedCache    *prometheus.CounterVec // labels: result={hit,miss}
	EmbedSeconds  prometheus.Histogram

	// Retrieval metrics.
	Retrievals       *prometheus.CounterVec // labels: collection, outcome
	RetrievalSeconds prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsRead,
		m.RecordsNormalized,
		m.RecordsDropped,
		m.PointsUpserted,
		m.IngestRunning,
		m.BatchSize,
		m.BatchUpsertSeconds,
		m.EmbedRequests,
		m.EmbedCache,
		m.EmbedSeconds,
		m.Retrievals,
		m.RetrievalSeconds,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "records_read_total",
			Help:      "Total raw records read from source files.",
		}),
		RecordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "records_normalized_total",
			Help:      "Total records surviving normalization.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "records_dropped_total",
			Help:      "Records dropped during normalization by reason.",
		}, []string{"reason"}),
		PointsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "points_upserted_total",
			Help:      "Points written to the vector index by collection.",
		}, []string{"collection"}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phenology",
			Name:      "ingest_running",
			Help:      "1 while the ingestion pipeline is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phenology",
			Name:      "batch_size",
			Help:      "Number of points per upsert batch.",
			Buckets:   []float64{1, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchUpsertSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phenology",
			Name:      "batch_upsert_duration_seconds",
			Help:      "Duration of one embed-and-upsert batch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EmbedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "embed_requests_total",
			Help:      "Embedding server requests by outcome.",
		}, []string{"outcome"}),
		EmbedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "embed_cache_total",
			Help:      "Embedding cache lookups by result.",
		}, []string{"result"}),
		EmbedSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phenology",
			Name:      "embed_duration_seconds",
			Help:      "Embedding server request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phenology",
			Name:      "retrievals_total",
			Help:      "Retrieval queries by collection and outcome.",
		}, []string{"collection", "outcome"}),
		RetrievalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phenology",
			Name:      "retrieval_duration_seconds",
			Help:      "Vector-index query duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
