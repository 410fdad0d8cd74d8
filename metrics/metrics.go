package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

var (
	AnalysisRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazardanalysis_analysis_runs_total",
		Help: "Total analysis runs by kind and final status",
	}, []string{"kind", "status"})
	AnalysisDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hazardanalysis_analysis_duration_ms",
		Help:    "Analysis run duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"kind"})
	SupersededResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazardanalysis_superseded_results_total",
		Help: "Total analysis results discarded because a newer run of the same kind was started",
	}, []string{"kind"})
	StatsRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazardanalysis_stats_requests_total",
		Help: "Total requests to the zonal statistics service by outcome",
	}, []string{"outcome"})
	StatsRequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hazardanalysis_stats_request_duration_ms",
		Help:    "Zonal statistics service request duration in milliseconds",
		Buckets: durationBuckets,
	})
	StatsCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hazardanalysis_stats_cache_hits_total",
		Help: "Total statistics response cache hits",
	})
	StatsCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hazardanalysis_stats_cache_misses_total",
		Help: "Total statistics response cache misses",
	})
	LayerLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazardanalysis_layer_loads_total",
		Help: "Total boundary and baseline layer data loads by layer type and outcome",
	}, []string{"type", "outcome"})
)

func init() {
	prometheus.MustRegister(AnalysisRunsTotal)
	prometheus.MustRegister(AnalysisDurationMs)
	prometheus.MustRegister(SupersededResultsTotal)
	prometheus.MustRegister(StatsRequestsTotal)
	prometheus.MustRegister(StatsRequestDurationMs)
	prometheus.MustRegister(StatsCacheHitsTotal)
	prometheus.MustRegister(StatsCacheMissesTotal)
	prometheus.MustRegister(LayerLoadsTotal)
}

// Handler serves the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
