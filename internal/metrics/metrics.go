// Package metrics exposes Prometheus collectors for the crawl and enrichment runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request categories used as the "kind" label on upstream request counters.
const (
	KindCharacter = "character"
	KindAnime     = "anime"
	KindManga     = "manga"
	KindAniList   = "anilist"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "malcrawl_upstream_requests_total",
			Help: "Total number of upstream requests, labeled by kind.",
		},
		[]string{"kind"},
	)

	upstreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "malcrawl_upstream_failures_total",
			Help: "Total number of failed upstream requests, labeled by kind and error class.",
		},
		[]string{"kind", "class"},
	)

	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "malcrawl_cache_hits_total",
			Help: "Total number of popularity cache consultations served without a remote call.",
		},
	)

	rowsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "malcrawl_rows_written_total",
			Help: "Total number of output rows written.",
		},
	)

	idsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "malcrawl_ids_skipped_total",
			Help: "Total number of ids skipped after an upstream rejection.",
		},
	)

	crawlProgressPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "malcrawl_progress_percent",
			Help: "Coarse completion percentage of the running crawl.",
		},
	)

	rateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "malcrawl_rate_limit_wait_seconds",
			Help:    "Histogram of fixed pre-request waits.",
			Buckets: []float64{0.1, 0.5, 1, 2, 4, 8},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "malcrawl_http_requests_total",
			Help: "Total number of status server requests, labeled by route and code.",
		},
		[]string{"route", "code"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest counts one upstream request of the given kind.
func ObserveRequest(kind string) {
	upstreamRequestsTotal.WithLabelValues(kind).Inc()
}

// ObserveFailure counts one failed upstream request.
func ObserveFailure(kind, class string) {
	upstreamFailuresTotal.WithLabelValues(kind, class).Inc()
}

// ObserveCacheHit counts one cache hit.
func ObserveCacheHit() {
	cacheHitsTotal.Inc()
}

// ObserveRow counts one written output row.
func ObserveRow() {
	rowsWrittenTotal.Inc()
}

// ObserveSkip counts one skipped id.
func ObserveSkip() {
	idsSkippedTotal.Inc()
}

// SetProgress records the latest completion percentage.
func SetProgress(percent int) {
	crawlProgressPercent.Set(float64(percent))
}

// ObserveRateLimitWait records the duration of a pre-request wait.
func ObserveRateLimitWait(d time.Duration) {
	rateLimitWaitSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest counts one status server request.
func ObserveHTTPRequest(route string, code int) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
