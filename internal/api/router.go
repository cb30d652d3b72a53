// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/experimentus/internal/middleware"
)

// RouterConfig holds the HTTP surface configuration.
type RouterConfig struct {
	// CORS configuration. Origins default to empty, requiring explicit
	// configuration before browsers can call the API cross-origin.
	CORSAllowedOrigins []string

	// Rate limiting. Assignment and tracking sit on the content
	// delivery path, so their limits are far more permissive than the
	// management endpoints.
	RateLimitDisabled      bool
	ManagementRateLimit    int
	ManagementRateWindow   time.Duration
	DeliveryRateLimit      int
	DeliveryRateWindow     time.Duration
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins:   []string{},
		ManagementRateLimit:  100,
		ManagementRateWindow: time.Minute,
		DeliveryRateLimit:    5000,
		DeliveryRateWindow:   time.Minute,
	}
}

// Router assembles the HTTP handler tree.
type Router struct {
	config   RouterConfig
	handlers *Handlers
}

// NewRouter creates a Router for the given handlers.
func NewRouter(cfg RouterConfig, handlers *Handlers) *Router {
	return &Router{config: cfg, handlers: handlers}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler form.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup builds the complete route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))
	r.Use(securityHeaders())

	// Health endpoints, permissively limited for monitoring tools.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.rateLimit(1000, time.Minute))
		r.Get("/", router.handlers.Health)
		r.Get("/live", router.handlers.HealthLive)
		r.Get("/ready", router.handlers.HealthReady)
	})

	// Management endpoints: experiment definition and lifecycle.
	r.Route("/api/v1/experiments", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Group(func(r chi.Router) {
			r.Use(router.rateLimit(router.config.ManagementRateLimit, router.config.ManagementRateWindow))
			r.Post("/", router.handlers.CreateExperiment)
			r.Get("/", router.handlers.ListExperiments)
			r.Get("/{id}", router.handlers.GetExperiment)
			r.Post("/{id}/start", router.handlers.StartExperiment)
			r.Post("/{id}/stop", router.handlers.StopExperiment)
			r.Get("/{id}/results", router.handlers.GetResults)
			r.Get("/{id}/events", router.handlers.RecentEvents)
		})

		// Delivery-path endpoints carry content traffic.
		r.Group(func(r chi.Router) {
			r.Use(router.rateLimit(router.config.DeliveryRateLimit, router.config.DeliveryRateWindow))
			r.Get("/{id}/assignment", router.handlers.GetAssignment)
			r.Post("/{id}/events", router.handlers.TrackEvent)
		})
	})

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns an IP-keyed rate limiter, or a no-op when rate
// limiting is disabled.
func (router *Router) rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if router.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(requests, window)
}

// securityHeaders adds baseline security headers to every response.
func securityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
