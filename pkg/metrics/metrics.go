// Package metrics defines the Prometheus metric collectors used across the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	QueryResultBlocks    prometheus.Histogram
	BloomShardsScanned   prometheus.Counter
	BloomShardCandidates prometheus.Counter
	PostingsBytesRead    prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	BlocksIndexedTotal   prometheus.Counter
	IndexBuildsTotal     *prometheus.CounterVec
	IndexBuildDuration   prometheus.Histogram
	IndexShardCount      prometheus.Gauge
	IndexPostingsCount   prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boolean_queries_total",
				Help: "Total boolean queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boolean_query_latency_seconds",
				Help:    "Boolean query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryResultBlocks: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "boolean_query_result_blocks",
				Help:    "Number of block numbers returned per boolean query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
			},
		),
		BloomShardsScanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bloom_shards_scanned_total",
				Help: "Total shard bloom filters examined during postings lookups.",
			},
		),
		BloomShardCandidates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bloom_shard_candidates_total",
				Help: "Total shards whose bloom filter reported the key present.",
			},
		),
		PostingsBytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postings_bytes_read_total",
				Help: "Total compressed postings bytes fetched from the store.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		BlocksIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blocks_indexed_total",
				Help: "Total block records scanned by index builds.",
			},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index build operations by status.",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall-clock duration of full index rebuilds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		IndexShardCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_shard_count",
				Help: "Number of shards in the most recent index build.",
			},
		),
		IndexPostingsCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_postings_count",
				Help: "Number of (key, shard) postings entries in the most recent build.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultBlocks,
		m.BloomShardsScanned,
		m.BloomShardCandidates,
		m.PostingsBytesRead,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.BlocksIndexedTotal,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexShardCount,
		m.IndexPostingsCount,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
