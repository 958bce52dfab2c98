package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BracketsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tournament_brackets_generated_total",
		Help: "Number of knockout brackets generated.",
	})

	MatchesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tournament_matches_generated_total",
		Help: "Number of matches created by bulk generation.",
	})

	DrawSessionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournament_draw_sessions_applied_total",
		Help: "Number of draw sessions applied, by session type.",
	}, []string{"type"})

	SlotsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tournament_bracket_slots_resolved_total",
		Help: "Number of bracket slots resolved to a concrete participant.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tournament_http_request_duration_seconds",
		Help:    "HTTP request latency by method and path pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
