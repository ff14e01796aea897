// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// AdminStats handles GET /api/v1/admin/stats.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.db.GetAdminStats(r.Context())
	if err != nil {
		respondStoreError(w, err, "stats")
		return
	}
	respondSuccess(w, http.StatusOK, stats, start)
}

// AdminPerformance handles GET /api/v1/admin/performance. It reports
// per-endpoint latency aggregates from the in-process sliding window
// plus the most recent raw samples.
func (h *Handler) AdminPerformance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.perfMon == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Performance monitoring is not enabled", nil)
		return
	}

	recent := 20
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "recent must be an integer between 0 and 500", nil)
			return
		}
		recent = n
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"endpoints": h.perfMon.GetStats(),
		"recent":    h.perfMon.GetRecentMetrics(recent),
	}, start)
}

// ListUsers handles GET /api/v1/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	offset, limit := h.pageWindow(r)
	users, total, err := h.db.ListUsers(r.Context(), offset, limit)
	if err != nil {
		respondStoreError(w, err, "users")
		return
	}

	respondSuccess(w, http.StatusOK, models.UserListResponse{
		Users:      users,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// UpdateUserRole handles PUT /api/v1/admin/users/{id}/role.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.UpdateUserRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}
	if user.ID == subject.UserID {
		respondError(w, http.StatusConflict, "CONFLICT", "You cannot change your own role", nil)
		return
	}
	if user.Role == req.Role {
		respondSuccess(w, http.StatusOK, user, start)
		return
	}

	if err := h.db.UpdateUserRole(r.Context(), user.ID, req.Role); err != nil {
		respondStoreError(w, err, "user")
		return
	}

	entry := models.NewAuditEntry(subject.UserID, subject.Username,
		models.AuditActionRoleChange, "user", user.ID)
	entry.OldValue = user.Role
	entry.NewValue = req.Role
	entry.Reason = req.Reason
	entry.IPAddress = clientInfo(r).IP
	h.writeAudit(r, entry)

	h.notifyModeration(r, user.ID, models.ModerationPayload{
		Action:     models.AuditActionRoleChange,
		TargetType: "user",
		TargetID:   user.ID,
		Reason:     req.Reason,
	})

	logging.Info().
		Str("actor", subject.Username).
		Str("user_id", user.ID).
		Str("old_role", user.Role).
		Str("new_role", req.Role).
		Msg("User role changed")

	user.Role = req.Role
	respondSuccess(w, http.StatusOK, user, start)
}

// UpdateUserStatus handles PUT /api/v1/admin/users/{id}/status.
// Suspension also revokes every live session the user holds.
func (h *Handler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.UpdateUserStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}
	if user.ID == subject.UserID {
		respondError(w, http.StatusConflict, "CONFLICT", "You cannot suspend yourself", nil)
		return
	}
	if user.Status == req.Status {
		respondSuccess(w, http.StatusOK, user, start)
		return
	}

	if err := h.db.UpdateUserStatus(r.Context(), user.ID, req.Status); err != nil {
		respondStoreError(w, err, "user")
		return
	}

	if req.Status == models.UserStatusSuspended {
		revoked, err := h.auth.Sessions().DeleteByUserID(r.Context(), user.ID)
		if err != nil {
			logging.Error().Err(err).Str("user_id", user.ID).Msg("Failed to revoke sessions on suspension")
		} else if revoked > 0 {
			logging.Info().Str("user_id", user.ID).Int("revoked", revoked).Msg("Sessions revoked on suspension")
		}
	}

	entry := models.NewAuditEntry(subject.UserID, subject.Username,
		models.AuditActionStatusChange, "user", user.ID)
	entry.OldValue = user.Status
	entry.NewValue = req.Status
	entry.Reason = req.Reason
	entry.IPAddress = clientInfo(r).IP
	h.writeAudit(r, entry)

	h.notifyModeration(r, user.ID, models.ModerationPayload{
		Action:     models.AuditActionStatusChange,
		TargetType: "user",
		TargetID:   user.ID,
		Reason:     req.Reason,
	})

	user.Status = req.Status
	respondSuccess(w, http.StatusOK, user, start)
}

// TakedownWork handles POST /api/v1/admin/works/{id}/takedown. The work
// is unpublished, not deleted; the author keeps their drafts.
func (h *Handler) TakedownWork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.TakedownRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	work, err := h.db.GetWorkByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "work")
		return
	}
	if work == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Work not found", nil)
		return
	}
	if work.Status == models.WorkStatusDraft {
		respondError(w, http.StatusConflict, "CONFLICT", "Work is not published", nil)
		return
	}

	if err := h.db.UpdateWorkStatus(r.Context(), work.ID, models.WorkStatusDraft); err != nil {
		respondStoreError(w, err, "work")
		return
	}

	entry := models.NewAuditEntry(subject.UserID, subject.Username,
		models.AuditActionTakedown, "work", work.ID)
	entry.OldValue = work.Status
	entry.NewValue = models.WorkStatusDraft
	entry.Reason = req.Reason
	entry.IPAddress = clientInfo(r).IP
	h.writeAudit(r, entry)

	h.notifyModeration(r, work.AuthorID, models.ModerationPayload{
		Action:     models.AuditActionTakedown,
		TargetType: "work",
		TargetID:   work.ID,
		Reason:     req.Reason,
	})

	logging.Info().
		Str("actor", subject.Username).
		Str("work_id", work.ID).
		Msg("Work taken down")

	work.Status = models.WorkStatusDraft
	respondSuccess(w, http.StatusOK, work, start)
}

// TakedownChapter handles POST /api/v1/admin/chapters/{id}/takedown.
func (h *Handler) TakedownChapter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.TakedownRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	chapter, err := h.db.GetChapterByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "chapter")
		return
	}
	if chapter == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return
	}
	if chapter.Status == models.ChapterStatusDraft {
		respondError(w, http.StatusConflict, "CONFLICT", "Chapter is not published", nil)
		return
	}

	work, err := h.db.GetWorkByID(r.Context(), chapter.WorkID)
	if err != nil {
		respondStoreError(w, err, "work")
		return
	}

	if err := h.db.UnpublishChapter(r.Context(), chapter.ID); err != nil {
		respondStoreError(w, err, "chapter")
		return
	}

	entry := models.NewAuditEntry(subject.UserID, subject.Username,
		models.AuditActionTakedown, "chapter", chapter.ID)
	entry.OldValue = chapter.Status
	entry.NewValue = models.ChapterStatusDraft
	entry.Reason = req.Reason
	entry.IPAddress = clientInfo(r).IP
	h.writeAudit(r, entry)

	if work != nil {
		h.notifyModeration(r, work.AuthorID, models.ModerationPayload{
			Action:     models.AuditActionTakedown,
			TargetType: "chapter",
			TargetID:   chapter.ID,
			Reason:     req.Reason,
		})
	}

	chapter.Status = models.ChapterStatusDraft
	chapter.PublishedAt = nil
	chapter.ScheduledFor = nil
	respondSuccess(w, http.StatusOK, chapter, start)
}

// ListAudit handles GET /api/v1/admin/audit.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	offset, limit := h.pageWindow(r)
	filter := models.AuditListFilter{
		ActorID:    r.URL.Query().Get("actor_id"),
		Action:     r.URL.Query().Get("action"),
		TargetType: r.URL.Query().Get("target_type"),
		Offset:     offset,
		Limit:      limit,
	}

	entries, total, err := h.db.ListAuditEntries(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err, "audit log")
		return
	}

	respondSuccess(w, http.StatusOK, models.AuditListResponse{
		Entries:    entries,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// writeAudit persists an audit entry. Failures are logged rather than
// surfaced since the moderation action itself already succeeded.
func (h *Handler) writeAudit(r *http.Request, entry *models.AuditEntry) {
	if err := h.db.CreateAuditEntry(r.Context(), entry); err != nil {
		logging.Error().Err(err).
			Str("action", entry.Action).
			Str("target_id", entry.TargetID).
			Msg("Failed to write audit entry")
	}
}

// notifyModeration drops a moderation notification into the affected
// user's inbox.
func (h *Handler) notifyModeration(r *http.Request, userID string, payload models.ModerationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal moderation payload")
		return
	}

	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      models.NotificationModeration,
		Payload:   string(body),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.db.CreateNotification(r.Context(), n); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Failed to create moderation notification")
	}
}
