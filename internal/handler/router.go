// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/urfield-go/internal/middleware"
)

// DefaultRequestTimeout bounds a request including its uploads.
const DefaultRequestTimeout = 2 * time.Minute

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	Auth     *AuthHandler
	Articles *ArticlesHandler
	Verify   *VerifyHandler
	Health   *HealthHandler

	Sessions        *scs.SessionManager
	LoginProtection *middleware.LoginProtection
	RateLimiter     *middleware.RateLimiter
	CSRF            middleware.CSRFConfig
	IsDevelopment   bool

	// Uploads serves local assets below /uploads; nil when assets live in the CMS.
	Uploads        http.Handler
	RequestTimeout time.Duration
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
	}
	if cfg.Uploads != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", cfg.Uploads))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(timeout))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware())
		}
		r.Use(middleware.CSRF(cfg.CSRF))
		r.Use(cfg.Sessions.LoadAndSave)

		r.Route("/auth", func(r chi.Router) {
			login := http.Handler(http.HandlerFunc(cfg.Auth.Login))
			if cfg.LoginProtection != nil {
				login = cfg.LoginProtection.Middleware()(login)
			}
			r.Method(http.MethodPost, "/login", login)
			r.Post("/signup", cfg.Auth.Signup)
			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/user", cfg.Auth.User)
		})

		r.Route("/articles", func(r chi.Router) {
			r.Post("/", cfg.Articles.Submit)
			r.Get("/{id}", cfg.Articles.Get)
		})

		r.Route("/verify", func(r chi.Router) {
			r.Post("/", cfg.Verify.Verify)
			r.Get("/pending", cfg.Verify.Pending)
		})
	})

	return r
}
