package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/ink/internal/api"
	"github.com/ashureev/ink/internal/config"
	"github.com/ashureev/ink/internal/engine"
	"github.com/ashureev/ink/internal/identity"
	"github.com/ashureev/ink/internal/metrics"
	"github.com/ashureev/ink/internal/middleware"
	"github.com/ashureev/ink/web"
)

type routerDeps struct {
	cfg      *config.Config
	engine   *engine.Engine
	metrics  *metrics.Metrics
	signer   *identity.Signer
	thinking http.Handler
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(d.metrics.Middleware)
	r.Use(middleware.CORS(d.cfg.AllowedOrigins))

	// Public routes.
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	// Session-scoped routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(d.signer, d.cfg.SecureCookies))

		api.NewHandler(d.engine, d.metrics, d.cfg.ImagesDir(), d.cfg.MaxRequestBodySize).RegisterRoutes(r)

		// WebSocket endpoint.
		r.Method(http.MethodGet, "/ws/thinking", d.thinking)

		// Serve embedded chat page (catch-all).
		r.Handle("/*", web.Handler())
	})

	return r
}
