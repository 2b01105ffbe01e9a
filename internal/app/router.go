package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthpool/riskpool/internal/access"
	"github.com/healthpool/riskpool/internal/auth"
	"github.com/healthpool/riskpool/internal/claims"
	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/membership"
	"github.com/healthpool/riskpool/internal/observability"
	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/pool"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteMounter attaches a handler's routes to a sub-router.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Auth              *auth.Service
	Metrics           *observability.Metrics
	AccessHandler     *access.Handler
	MembershipHandler *membership.Handler
	PoolHandler       *pool.Handler
	ClaimsHandler     *claims.Handler
	EventsHandler     *events.Handler
	JobsHandler       RouteMounter
	Health            []Pinger
}

// NewRouter constructs the chi.Router with riskpool defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    params.Auth,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range params.Health {
			if err := p.Ping(r.Context()); err != nil {
				params.Logger.Warn("health check", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		if params.AccessHandler != nil {
			v1.Route("/access", params.AccessHandler.MountRoutes)
		}
		if params.MembershipHandler != nil {
			v1.Route("/membership", params.MembershipHandler.MountRoutes)
		}
		if params.PoolHandler != nil {
			v1.Route("/pool", params.PoolHandler.MountRoutes)
		}
		if params.ClaimsHandler != nil {
			v1.Route("/claims", params.ClaimsHandler.MountRoutes)
		}
		if params.EventsHandler != nil {
			v1.Route("/events", params.EventsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			v1.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "not found", r.URL.Path, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "method not allowed", r.Method, "")
	})
	return r
}
