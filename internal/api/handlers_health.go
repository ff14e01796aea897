// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"time"
)

// Health handles GET /api/v1/health. Reports process uptime and
// storage reachability for dashboards and load balancers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := "healthy"
	dbStatus := "ok"
	httpStatus := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "unhealthy"
		dbStatus = "unreachable"
		httpStatus = http.StatusServiceUnavailable
	}

	payload := map[string]interface{}{
		"status":         status,
		"database":       dbStatus,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if h.wsHub != nil {
		payload["websocket_clients"] = h.wsHub.GetClientCount()
	}

	if httpStatus != http.StatusOK {
		respondError(w, httpStatus, "SERVICE_UNAVAILABLE", "Database unreachable", nil)
		return
	}
	respondSuccess(w, httpStatus, payload, start)
}

// HealthLive handles GET /api/v1/health/live. Process-only liveness:
// answering at all is the signal, so no dependencies are checked.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, start)
}

// HealthReady handles GET /api/v1/health/ready. Readiness gates traffic
// on the database answering.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Not ready", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, start)
}
