// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodgram_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ToggleOperations counts add/remove calls per relation and outcome
	ToggleOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_toggle_operations_total",
		Help: "Favorite, shopping cart and follow toggles by outcome",
	}, []string{"relation", "action", "outcome"})

	ShoppingListDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodgram_shopping_list_downloads_total",
		Help: "Shopping list documents generated",
	})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_rate_limit_rejections_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"limiter"})

	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_cache_results_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"})
)
