// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearview_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	ArticlesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearview_articles_saved_total",
			Help: "Article submissions, by outcome (created, viewed, failed).",
		},
		[]string{"outcome"},
	)

	EnrichmentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearview_enrichment_requests_total",
			Help: "Enrichment calls, by client and outcome.",
		},
		[]string{"client", "outcome"},
	)

	EnrichmentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clearview_enrichment_duration_seconds",
			Help:    "Latency of enrichment calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"client"},
	)

	CompletionCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearview_completion_cache_total",
			Help: "Completion cache lookups, by result (hit, miss, error, rejected).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, ArticlesSaved, EnrichmentRequests, EnrichmentDuration, CompletionCache)
}
