// Package metrics exposes the Prometheus registry for a clustering run
// (§9.5): merge throughput, potential-evaluation volume, and cache
// effectiveness, mounted under /metrics by cmd/cluster-server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MergesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cluster_merges_total",
		Help: "Total number of merge records emitted",
	})
	PotentialEvalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cluster_potential_evals_total",
		Help: "Total number of point-by-point potential evaluations performed",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cluster_cache_hits_total",
		Help: "Total potential cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cluster_cache_misses_total",
		Help: "Total potential cache misses",
	})
	MergeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cluster_merge_duration_ms",
		Help:    "Wall-clock duration of a complete clustering run in milliseconds",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 20000, 60000, 300000},
	})
	IngestDuplicateCoordTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cluster_ingest_duplicate_coord_total",
		Help: "Total input rows flagged by the duplicate-coordinate diagnostic",
	})
	JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cluster_jobs_total",
		Help: "Total clustering jobs submitted to the control-plane API by terminal status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(PotentialEvalsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(MergeDurationMs)
	prometheus.MustRegister(IngestDuplicateCoordTotal)
	prometheus.MustRegister(JobsTotal)
}

// Handler exposes the registered metrics for a Prometheus scrape.
func Handler() http.Handler { return promhttp.Handler() }
