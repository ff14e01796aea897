// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/billing"
	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/database"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/media"
	"github.com/paperbound/paperbound/internal/middleware"
	"github.com/paperbound/paperbound/internal/websocket"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	db        *database.DB
	cfg       *config.Config
	auth      *auth.Service
	media     *media.Store
	billing   *billing.Client
	publisher *events.Publisher
	wsHub     *websocket.Hub
	oidc      *auth.OIDCClient
	perfMon   *middleware.PerformanceMonitor
	startTime time.Time
}

// HandlerConfig bundles the dependencies for NewHandler.
type HandlerConfig struct {
	DB        *database.DB
	Config    *config.Config
	Auth      *auth.Service
	Media     *media.Store
	Billing   *billing.Client
	Publisher *events.Publisher
	WSHub     *websocket.Hub
	OIDC      *auth.OIDCClient
	PerfMon   *middleware.PerformanceMonitor
}

// NewHandler creates a handler set from its dependencies.
func NewHandler(hc HandlerConfig) *Handler {
	return &Handler{
		db:        hc.DB,
		cfg:       hc.Config,
		auth:      hc.Auth,
		media:     hc.Media,
		billing:   hc.Billing,
		publisher: hc.Publisher,
		wsHub:     hc.WSHub,
		oidc:      hc.OIDC,
		perfMon:   hc.PerfMon,
		startTime: time.Now(),
	}
}

// getUpgrader returns a websocket upgrader with origin checking.
func (h *Handler) getUpgrader() *gorillaws.Upgrader {
	return &gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header of websocket upgrade
// requests against the configured CORS origins. Browsers always send
// Origin on cross-site websocket requests; an empty Origin means a
// non-browser client, which is allowed since it already had to present
// a valid token.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	// No config means a test harness; allow.
	if h.cfg == nil {
		return true
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().
		Str("origin", sanitizeLogValue(origin)).
		Msg("Rejected websocket upgrade from disallowed origin")
	return false
}

// clientInfo extracts the caller's address and user agent for the
// security audit log.
func clientInfo(r *http.Request) auth.ClientInfo {
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.RemoteAddr
	}
	return auth.ClientInfo{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
