package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generatorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elysium_generator_requests_total",
			Help: "Total number of requests to generation upstreams.",
		},
		[]string{"generator", "status"}, // generator: text|image, status: success|error
	)
	generatorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elysium_generator_request_duration_seconds",
			Help:    "Histogram of generation upstream request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"generator"},
	)
	textPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elysium_text_prompt_tokens",
			Help:    "Histogram of prompt token counts reported by the text upstream.",
			Buckets: prometheus.LinearBuckets(250, 250, 20), // 250, 500, ..., 5000
		},
		[]string{"model"},
	)
	textCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elysium_text_completion_tokens",
			Help:    "Histogram of completion token counts reported by the text upstream.",
			Buckets: prometheus.LinearBuckets(100, 100, 20), // 100, 200, ..., 2000
		},
		[]string{"model"},
	)
	imageBytesGenerated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "elysium_image_response_bytes",
			Help:    "Histogram of generated image sizes in bytes.",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8), // 16KiB ... 2MiB
		},
	)
)
