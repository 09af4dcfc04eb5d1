package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitemapper",
			Name:      "crawls_total",
			Help:      "Total crawl invocations by outcome",
		},
		[]string{"status"},
	)

	crawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sitemapper",
			Name:      "crawl_duration_seconds",
			Help:      "Duration of complete crawls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2m
		},
	)

	crawlPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sitemapper",
			Name:      "crawl_pages",
			Help:      "Page records produced per crawl",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200},
		},
	)

	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitemapper",
			Name:      "fetches_total",
			Help:      "Total page fetches by outcome (html, skip, failure)",
		},
		[]string{"outcome"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sitemapper",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of single page fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
