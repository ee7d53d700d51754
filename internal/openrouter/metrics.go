package openrouter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashai_completion_requests_total",
			Help: "Completion requests by model and final status.",
		},
		[]string{"model", "status"},
	)
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashai_completion_retries_total",
			Help: "Completion retries by model and error kind.",
		},
		[]string{"model", "reason"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flashai_completion_request_duration_seconds",
			Help:    "Duration of a single completion attempt.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)
	promptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flashai_completion_prompt_tokens",
			Help:    "Prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model"},
	)
	completionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flashai_completion_completion_tokens",
			Help:    "Completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
	totalTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flashai_completion_total_tokens",
			Help:    "Total token counts (prompt + completion).",
			Buckets: prometheus.LinearBuckets(350, 350, 20),
		},
		[]string{"model"},
	)
)

func observeUsage(model string, u Usage) {
	if u.TotalTokens <= 0 {
		return
	}
	promptTokens.WithLabelValues(model).Observe(float64(u.PromptTokens))
	completionTokens.WithLabelValues(model).Observe(float64(u.CompletionTokens))
	totalTokens.WithLabelValues(model).Observe(float64(u.TotalTokens))
}
