package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for suggestion generation.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	registry = prometheus.NewRegistry()

	suggestionGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_generations_total",
			Help: "Total suggestion generations by outcome",
		},
		[]string{"outcome"},
	)

	suggestionGenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suggestion_generation_duration_seconds",
			Help:    "Time spent evaluating the suggestion rule table",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	suggestionsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suggestions_returned",
			Help:    "Number of suggestions kept after filtering",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method and status",
		},
		[]string{"method", "status"},
	)
)

func init() {
	registry.MustRegister(
		suggestionGenerationsTotal,
		suggestionGenerationDuration,
		suggestionsReturned,
		httpRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveSuggestionGeneration records one engine run.
func ObserveSuggestionGeneration(outcome string, elapsed time.Duration, returned int) {
	suggestionGenerationsTotal.WithLabelValues(outcome).Inc()
	if elapsed < 0 {
		elapsed = 0
	}
	suggestionGenerationDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		suggestionsReturned.Observe(float64(returned))
	}
}

// IncHTTPRequest counts a served request.
func IncHTTPRequest(method string, status int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Registry exposes the registry for tests and custom collectors.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
