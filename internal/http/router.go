// Package httpapi composes the HTTP surface: middleware chain, health
// probes, metrics, and the versioned API routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caseflow/internal/http/shared"
	"caseflow/internal/platform/middleware"
)

// Registrar is anything that can mount its routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig carries everything the top-level router needs.
type RouterConfig struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator
	// Handlers are mounted under /v1 behind authentication.
	Handlers []Registrar
	// Dependencies are probed by /readyz, keyed by name.
	Dependencies map[string]HealthChecker
}

// NewRouter wires the full HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(cfg.Dependencies))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		for _, h := range cfg.Handlers {
			h.Register(api)
		}
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(deps map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Health(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		shared.WriteJSON(w, status, map[string]any{"checks": checks})
	}
}
