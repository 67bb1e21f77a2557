// Package httpapi assembles the public router. It owns transport-wide
// concerns (request IDs, recovery, health, metrics); feature endpoints mount
// themselves via Registrar.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certpass/internal/platform/middleware"
	"certpass/pkg/httputil"
)

// Registrar is implemented by feature handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// New builds the router. checks is keyed by dependency name; a failing check
// turns /healthz into a 503 naming the broken dependency.
func New(logger *slog.Logger, checks map[string]HealthCheck, handlers ...Registrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(logger, checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
