package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/embedder"
)

const namespace = "ragcore"

// Collector holds the service's prometheus metrics on a private registry.
// It satisfies search.Observer and rerank.FallbackObserver.
type Collector struct {
	registry *prometheus.Registry

	searchTotal     *prometheus.CounterVec
	searchResults   prometheus.Histogram
	stageDuration   *prometheus.HistogramVec
	fallbackTotal   *prometheus.CounterVec
	fallbackRecords prometheus.Counter
	ingestTotal     *prometheus.CounterVec
	ingestChunks    prometheus.Counter
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total searches by response status.",
		},
		[]string{"status"},
	)
	searchResults := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of results returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rescore",
			Name:      "fallbacks_total",
			Help:      "Rescoring batches that fell back to synthetic scores, by reason.",
		},
		[]string{"reason"},
	)
	fallbackRecords := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rescore",
			Name:      "fallback_records_total",
			Help:      "Records scored synthetically after a fallback.",
		},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Documents ingested by status.",
		},
		[]string{"status"},
	)
	ingestChunks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks stored by ingestion.",
		},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		searchTotal,
		searchResults,
		stageDuration,
		fallbackTotal,
		fallbackRecords,
		ingestTotal,
		ingestChunks,
		requestTotal,
		requestDuration,
	)

	return &Collector{
		registry:        registry,
		searchTotal:     searchTotal,
		searchResults:   searchResults,
		stageDuration:   stageDuration,
		fallbackTotal:   fallbackTotal,
		fallbackRecords: fallbackRecords,
		ingestTotal:     ingestTotal,
		ingestChunks:    ingestChunks,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records the duration of one pipeline stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveSearch records one finished search.
func (c *Collector) ObserveSearch(status string, results int) {
	c.searchTotal.WithLabelValues(status).Inc()
	c.searchResults.Observe(float64(results))
}

// ObserveFallback records one rescoring batch scored synthetically.
func (c *Collector) ObserveFallback(reason string, records int) {
	c.fallbackTotal.WithLabelValues(reason).Inc()
	c.fallbackRecords.Add(float64(records))
}

// ObserveIngest records one document ingestion attempt.
func (c *Collector) ObserveIngest(err error, chunks int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.ingestTotal.WithLabelValues(status).Inc()
	if err == nil {
		c.ingestChunks.Add(float64(chunks))
	}
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// CacheStats is implemented by embedder.CachedEmbedder.
type CacheStats interface {
	Metrics() embedder.CacheMetrics
}

// RegisterEmbeddingCache exposes the hit and miss counts of an embedding
// cache.
func (c *Collector) RegisterEmbeddingCache(cache CacheStats) {
	c.registry.MustRegister(
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "cache_hits_total",
				Help:      "Embedding cache hits.",
			},
			func() float64 { return float64(cache.Metrics().Hits) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "embedding",
				Name:      "cache_misses_total",
				Help:      "Embedding cache misses.",
			},
			func() float64 { return float64(cache.Metrics().Misses) },
		),
	)
}
