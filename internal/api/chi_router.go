// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/photowall/internal/middleware"
)

// Router binds the handler and middleware into an http.Handler.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	staticDir     string
}

// NewRouter creates a Router serving static files from staticDir.
func NewRouter(handler *Handler, chiMw *ChiMiddleware, staticDir string) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
		staticDir:     staticDir,
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.PrometheusMetrics)

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// Webhooks
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebhook())
		r.Use(chimiddleware.RequestSize(maxWebhookBody))
		r.Post("/message", router.handler.Message)
		r.Get("/instagram/realtime", router.handler.InstagramVerify)
		r.Post("/instagram/realtime", router.handler.InstagramNotify)
	})

	// ========================
	// Account Linking
	// ========================
	r.Route("/auth/instagram", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuth())
		r.Get("/", router.handler.OAuthStart)
		r.Get("/callback", router.handler.OAuthCallback)
	})

	// ========================
	// Display API
	// ========================
	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Get("/media", router.handler.Media)
	})

	r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)

	r.Handle("/metrics", promhttp.Handler())

	if router.staticDir != "" {
		r.Handle("/*", hideDotfiles(http.FileServer(http.Dir(router.staticDir))))
	}

	return r
}

// hideDotfiles refuses paths with a dot-prefixed segment so in-progress
// downloads and placeholders are never served.
func hideDotfiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, seg := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(seg, ".") {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
