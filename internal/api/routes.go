package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router for the workforce API.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/datasets", h.HandleUpload)
		r.Get("/datasets", h.HandleListDatasets)

		r.Route("/datasets/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetDataset)
			r.Get("/aggregated", h.HandleAggregated)
			r.Get("/normalized", h.HandleNormalized)
			r.Get("/periods", h.HandlePeriods)
			r.Get("/contractor-stats", h.HandleContractorStats)
			r.Get("/role-totals", h.HandleRoleTotals)
			r.Get("/area-breakdown", h.HandleAreaBreakdown)
		})

		r.Get("/palette", h.HandlePalette)
		r.Get("/imports", h.HandleImports)
	})

	return r
}
