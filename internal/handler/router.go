package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the full HTTP surface of the station.
func NewRouter(log *slog.Logger, departures *DepartureHandler, slash *SlashHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))
	r.Use(Metrics)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/slack/train", slash.Train)

	r.Route("/departures", func(r chi.Router) {
		r.Get("/", departures.ListDepartures)
		r.Post("/", departures.StartDeparture)
		r.Post("/{destination}/passengers", departures.JoinDeparture)
	})
	r.Route("/passengers", func(r chi.Router) {
		r.Get("/{passenger}", departures.Whereabouts)
		r.Delete("/{passenger}", departures.Disembark)
	})
	r.Get("/history", departures.ListHistory)

	return r
}
