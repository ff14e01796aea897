// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/database"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// CreateComment handles POST /api/v1/chapters/{id}/comments. Threading
// is one level deep: a reply's parent must be a root comment on the
// same chapter.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	chapter, err := h.db.GetChapterByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "chapter")
		return
	}
	if chapter == nil || !chapter.IsPublished() {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return
	}

	var req models.CreateCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		ChapterID: chapter.ID,
		UserID:    subject.UserID,
		ParentID:  req.ParentID,
		Body:      req.Body,
		Status:    models.CommentStatusVisible,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.db.CreateComment(r.Context(), comment); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Parent comment not found", nil)
		case errors.Is(err, database.ErrParentWrongChapter):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Parent comment belongs to a different chapter", nil)
		case errors.Is(err, database.ErrReplyToReply):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Replies can only target root comments", nil)
		default:
			respondStoreError(w, err, "comment")
		}
		return
	}
	comment.Username = subject.Username

	if h.publisher != nil {
		err := h.publisher.CommentCreated(&events.CommentCreated{
			EventID:    events.NewEventID(),
			CommentID:  comment.ID,
			ChapterID:  chapter.ID,
			UserID:     subject.UserID,
			ParentID:   req.ParentID,
			OccurredAt: comment.CreatedAt,
		})
		if err != nil {
			logging.Error().Err(err).Str("comment_id", comment.ID).Msg("Failed to publish comment event")
		}
	}

	respondSuccess(w, http.StatusCreated, comment, start)
}

// ListComments handles GET /api/v1/chapters/{id}/comments. Removed
// comments keep their place in the thread with a redacted body.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chapter, err := h.db.GetChapterByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "chapter")
		return
	}
	if chapter == nil || !chapter.IsPublished() {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return
	}

	offset, limit := h.pageWindow(r)
	comments, total, err := h.db.ListComments(r.Context(), chapter.ID, offset, limit)
	if err != nil {
		respondStoreError(w, err, "comments")
		return
	}

	respondSuccess(w, http.StatusOK, models.CommentListResponse{
		Comments:   comments,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// DeleteComment handles DELETE /api/v1/comments/{id}. The owner or a
// moderator soft-deletes; the row stays so replies keep their context.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	comment, err := h.db.GetCommentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "comment")
		return
	}
	if comment == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Comment not found", nil)
		return
	}

	isModerator := models.RoleAtLeast(subject.Role, models.RoleModerator)
	if comment.UserID != subject.UserID && !isModerator {
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Not your comment", nil)
		return
	}

	if err := h.db.RemoveComment(r.Context(), comment.ID); err != nil {
		respondStoreError(w, err, "comment")
		return
	}

	// Moderator removals of someone else's comment land in the audit log.
	if isModerator && comment.UserID != subject.UserID {
		entry := models.NewAuditEntry(subject.UserID, subject.Username,
			models.AuditActionCommentRemoved, "comment", comment.ID)
		if err := h.db.CreateAuditEntry(r.Context(), entry); err != nil {
			logging.Error().Err(err).Str("comment_id", comment.ID).Msg("Failed to write audit entry")
		}
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "comment removed"}, start)
}
