// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// BranchTotal counts routed requests per response branch.
	BranchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_branch_total",
			Help: "Routed requests per response branch",
		},
		[]string{"branch", "status"},
	)

	// MoodDetectedTotal counts moods detected from user utterances.
	MoodDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_mood_detected_total",
			Help: "Moods detected from user utterances",
		},
		[]string{"mood"},
	)

	// CategoryFallbackTotal counts place searches that fell back to the
	// default tag because the extracted category was not recognized.
	CategoryFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_category_fallback_total",
			Help: "Place searches that used the fallback tag",
		},
		[]string{"category"},
	)

	// CompletionDuration tracks completion-provider call duration.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "Completion call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// CompletionTokensTotal tracks tokens processed by completion calls.
	CompletionTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_completion_tokens_total",
			Help: "Tokens processed by completion calls",
		},
		[]string{"provider", "direction"},
	)

	// PersistFailuresTotal counts chat turns that could not be written to the
	// history store. Persistence is best-effort; these never fail requests.
	PersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_persist_failures_total",
			Help: "Chat turns dropped by history store write failures",
		},
	)

	// TurnsTotal counts chat turns persisted, by mood.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_turns_total",
			Help: "Chat turns written to the history store",
		},
		[]string{"mood"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for a completion-provider call.
func RecordCompletion(provider, status string, duration float64, tokensIn, tokensOut int) {
	CompletionDuration.WithLabelValues(provider, status).Observe(duration)
	CompletionTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	CompletionTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
