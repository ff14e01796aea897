// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
	"github.com/paperbound/paperbound/internal/websocket"
)

// ListNotifications handles GET /api/v1/me/notifications. Unread
// notifications sort first; pass unread=true to list only those.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	unreadOnly := r.URL.Query().Get("unread") == "true"
	offset, limit := h.pageWindow(r)

	notifications, total, unread, err := h.db.ListNotifications(
		r.Context(), subject.UserID, unreadOnly, offset, limit)
	if err != nil {
		respondStoreError(w, err, "notifications")
		return
	}

	respondSuccess(w, http.StatusOK, models.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
		Pagination:    models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// MarkNotificationsRead handles POST /api/v1/me/notifications/read.
// An empty id list marks the whole inbox read.
func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.MarkNotificationsReadRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
		if apiErr := validateRequest(&req); apiErr != nil {
			respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
			return
		}
	}

	marked, err := h.db.MarkNotificationsRead(r.Context(), subject.UserID, req.IDs)
	if err != nil {
		respondStoreError(w, err, "notifications")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]int{"marked_read": marked}, start)
}

// DeleteNotification handles DELETE /api/v1/me/notifications/{id}.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	err := h.db.DeleteNotification(r.Context(), subject.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "notification")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "notification deleted"}, start)
}

// WebSocketFeed handles GET /api/v1/ws. Upgrades the connection and
// attaches it to the hub so chapter releases reach open readers live.
func (h *Handler) WebSocketFeed(w http.ResponseWriter, r *http.Request) {
	subject := auth.SubjectFromContext(r.Context())

	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"Live feed is not available", nil)
		return
	}

	conn, err := h.getUpgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Str("user_id", subject.UserID).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.wsHub, conn, subject.UserID)
	h.wsHub.Register <- client
	client.Start()

	logging.Debug().
		Str("user_id", subject.UserID).
		Int("connections", h.wsHub.UserConnectionCount(subject.UserID)).
		Msg("WebSocket client connected")
}
