// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// chi_router.go - HTTP Route Registration
//
// Routes are grouped by authorization surface. Each group carries its
// own rate-limit tier; authentication and Casbin enforcement are
// per-group middleware, while ownership checks (your work, your
// comment) live in the handlers.
//
// Area prefixes (/api/v1/works, /api/v1/chapters, ...) are disjoint so
// each can be mounted as its own subrouter; inside an area, inline
// groups separate the public read surface from the authenticated one.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/authz"
	"github.com/paperbound/paperbound/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	authzMW *authz.Middleware
	chiMW   *ChiMiddleware
}

// NewRouter creates a router from its middleware and handler set.
func NewRouter(handler *Handler, authMW *auth.Middleware, authzMW *authz.Middleware, chiMW *ChiMiddleware) *Router {
	return &Router{
		handler: handler,
		authMW:  authMW,
		authzMW: authzMW,
		chiMW:   chiMW,
	}
}

// apiDefaults is the middleware stack shared by every API group.
func (rt *Router) apiDefaults(r chi.Router) {
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
}

// SetupChi builds the full route tree.
func (rt *Router) SetupChi() *chi.Mux {
	r := chi.NewRouter()
	h := rt.handler

	// Global middleware stack. Order matters: request ID first so every
	// later log line carries it, RealIP before rate limiting so limits
	// key on the client address rather than the proxy.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if h.perfMon != nil {
		r.Use(h.perfMon.Middleware)
	}
	r.Use(rt.chiMW.CORS())

	// Health endpoints. No auth so load balancers can probe them.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitHealth())
		rt.apiDefaults(r)

		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Account endpoints: credential entry points are public with strict
	// limits, the rest require a session.
	r.Route("/api/v1/auth", func(r chi.Router) {
		rt.apiDefaults(r)

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitLogin())
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitAuth())
			r.Get("/oidc/login", h.OIDCLogin)
			r.Get("/oidc/callback", h.OIDCCallback)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimit())
			r.Use(rt.authMW.Authenticate)

			r.Post("/logout", h.Logout)
			r.Post("/logout/all", h.LogoutAll)
			r.Get("/me", h.Me)
			r.Get("/sessions", h.Sessions)
			r.Delete("/sessions/{id}", h.RevokeSession)
		})
	})

	// Works: public catalog reads, authoring writes, reader reactions.
	r.Route("/api/v1/works", func(r chi.Router) {
		rt.apiDefaults(r)

		// Public reads. Optional auth so authors see their drafts and
		// members pass tier gates.
		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitBrowse())
			r.Use(rt.authMW.Optional)

			r.Get("/", h.BrowseWorks)
			r.Get("/slug/{slug}", h.GetWorkBySlug)
			r.Get("/{id}", h.GetWork)
			r.Get("/{id}/chapters", h.ListChapters)
			r.Get("/{id}/ratings", h.ListReviews)
		})

		// Authoring lifecycle.
		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitWrite())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.RequireRequest(authz.ObjectWorks))

			r.Post("/", h.CreateWork)
			r.Put("/{id}", h.UpdateWork)
			r.Delete("/{id}", h.DeleteWork)
			r.Post("/{id}/publish", h.PublishWork)
			r.Post("/{id}/unpublish", h.UnpublishWork)
			r.Post("/{id}/archive", h.ArchiveWork)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitWrite())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.Require(authz.ObjectChapters, authz.ActionWrite))

			r.Post("/{id}/chapters", h.CreateChapter)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitUpload())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.Require(authz.ObjectMedia, authz.ActionWrite))

			r.Post("/{id}/cover", h.UploadCover)
		})

		// Reader reactions: bookmarks, reading progress, ratings.
		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitWrite())
			r.Use(rt.authMW.Authenticate)

			r.Group(func(r chi.Router) {
				r.Use(rt.authzMW.RequireRequest(authz.ObjectBookmarks))

				r.Put("/{id}/bookmark", h.Bookmark)
				r.Delete("/{id}/bookmark", h.Unbookmark)
				r.Put("/{id}/bookmark/notify", h.UpdateNotify)
			})

			r.Group(func(r chi.Router) {
				r.Use(rt.authzMW.Require(authz.ObjectLibrary, authz.ActionWrite))
				r.Put("/{id}/progress", h.UpdateProgress)
			})

			r.Group(func(r chi.Router) {
				r.Use(rt.authzMW.RequireRequest(authz.ObjectRatings))

				r.Get("/{id}/rating", h.GetMyRating)
				r.Put("/{id}/rating", h.RateWork)
				r.Delete("/{id}/rating", h.DeleteRating)
			})
		})
	})

	// Chapters: public reads plus authoring writes and comments.
	r.Route("/api/v1/chapters", func(r chi.Router) {
		rt.apiDefaults(r)

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitBrowse())
			r.Use(rt.authMW.Optional)

			r.Get("/{id}", h.GetChapter)
			r.Get("/{id}/comments", h.ListComments)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitWrite())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.RequireRequest(authz.ObjectChapters))

			r.Put("/{id}", h.UpdateChapter)
			r.Delete("/{id}", h.DeleteChapter)
			r.Post("/{id}/publish", h.PublishChapter)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitUpload())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.Require(authz.ObjectMedia, authz.ActionWrite))

			r.Post("/{id}/pages", h.UploadPages)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitWrite())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.Require(authz.ObjectComments, authz.ActionWrite))

			r.Post("/{id}/comments", h.CreateComment)
		})
	})

	// Comment removal is owner-or-moderator, enforced in the handler.
	r.Route("/api/v1/comments", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitWrite())
		rt.apiDefaults(r)
		r.Use(rt.authMW.Authenticate)

		r.Delete("/{id}", h.DeleteComment)
	})

	// Personal surface: library, inbox, membership.
	r.Route("/api/v1/me", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimit())
		rt.apiDefaults(r)
		r.Use(rt.authMW.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(rt.authzMW.Require(authz.ObjectLibrary, authz.ActionRead))
			r.Get("/library", h.Library)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.authzMW.RequireRequest(authz.ObjectNotifications))

			r.Get("/notifications", h.ListNotifications)
			r.Post("/notifications/read", h.MarkNotificationsRead)
			r.Delete("/notifications/{id}", h.DeleteNotification)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.authzMW.RequireRequest(authz.ObjectSubscriptions))

			r.Get("/subscription", h.GetSubscription)
			r.Post("/subscription", h.StartSubscription)
			r.Delete("/subscription", h.CancelSubscription)
		})
	})

	// Profiles: public read by username, own-profile write. The static
	// "me" segment wins over the username parameter.
	r.Route("/api/v1/users", func(r chi.Router) {
		rt.apiDefaults(r)

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitBrowse())
			r.Use(rt.authMW.Optional)

			r.Get("/{username}", h.GetProfile)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.chiMW.RateLimitWrite())
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.Require(authz.ObjectProfile, authz.ActionWrite))

			r.Put("/me", h.UpdateProfile)
			r.Put("/me/password", h.ChangePassword)
		})
	})

	// Discovery endpoints.
	r.Group(func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitBrowse())
		rt.apiDefaults(r)
		r.Use(rt.authMW.Optional)

		r.Get("/api/v1/search", h.SearchWorks)
		r.Get("/api/v1/genres", h.ListGenres)
		r.Get("/api/v1/tags", h.ListTags)
		r.Get("/api/v1/tiers", h.ListTiers)
	})

	// Media files: public, cache-forever content-addressed paths.
	r.Route("/media", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitBrowse())
		rt.apiDefaults(r)

		r.Get("/*", h.ServeMedia)
	})

	// Live notification feed.
	r.Route("/api/v1/ws", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimit())
		r.Use(rt.authMW.Authenticate)

		r.Get("/", h.WebSocketFeed)
	})

	// Provider webhooks: no session, HMAC-verified in the handler.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimit())
		rt.apiDefaults(r)

		r.Post("/billing", h.BillingWebhook)
	})

	// Admin and moderation surface.
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimit())
		rt.apiDefaults(r)
		r.Use(rt.authMW.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(rt.authzMW.RequireRequest(authz.ObjectAdmin))

			r.Get("/stats", h.AdminStats)
			r.Get("/performance", h.AdminPerformance)
			r.Get("/users", h.ListUsers)
			r.Put("/users/{id}/role", h.UpdateUserRole)
			r.Put("/users/{id}/status", h.UpdateUserStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.authzMW.RequireRequest(authz.ObjectModeration))

			r.Post("/works/{id}/takedown", h.TakedownWork)
			r.Post("/chapters/{id}/takedown", h.TakedownChapter)
			r.Get("/audit", h.ListAudit)
		})
	})

	// Observability.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "VALIDATION_ERROR", "Method not allowed", nil)
	})

	return r
}
