package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
)

// Routable is implemented by every handler group.
type Routable interface {
	Routes(r chi.Router)
}

// NewRouter builds the common server: middleware, health, metrics and the
// given handler groups.
func NewRouter(lgr logger.Logger, groups ...Routable) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(lgr))
	r.Use(RecoveryMiddleware(lgr))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, g := range groups {
		g.Routes(r)
	}
	return r
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
}
