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
	"github.com/paperbound/paperbound/internal/models"
)

// Bookmark handles PUT /api/v1/works/{id}/bookmark. Re-bookmarking is a
// no-op; the response reports whether a bookmark was created.
func (h *Handler) Bookmark(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	work, ok := h.visibleWork(w, r)
	if !ok {
		return
	}

	created, err := h.db.CreateBookmark(r.Context(), subject.UserID, work.ID)
	if err != nil {
		respondStoreError(w, err, "bookmark")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]bool{"created": created}, start)
}

// Unbookmark handles DELETE /api/v1/works/{id}/bookmark.
func (h *Handler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	if err := h.db.DeleteBookmark(r.Context(), subject.UserID, chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err, "bookmark")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "bookmark removed"}, start)
}

// Library handles GET /api/v1/me/library: the caller's bookmarks joined
// with work summaries and unread chapter counts.
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	offset, limit := h.pageWindow(r)
	entries, total, err := h.db.ListLibrary(r.Context(), subject.UserID, offset, limit)
	if err != nil {
		respondStoreError(w, err, "library")
		return
	}

	respondSuccess(w, http.StatusOK, models.LibraryResponse{
		Entries:    entries,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// UpdateProgress handles PUT /api/v1/works/{id}/progress, setting the
// last read chapter on the caller's bookmark.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	workID := chi.URLParam(r, "id")

	var req models.UpdateProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	chapter, err := h.db.GetChapterByID(r.Context(), req.ChapterID)
	if err != nil {
		respondStoreError(w, err, "chapter")
		return
	}
	if chapter == nil || chapter.WorkID != workID || !chapter.IsPublished() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Chapter is not a published chapter of this work", nil)
		return
	}

	if err := h.db.UpdateProgress(r.Context(), subject.UserID, workID, chapter.ID, chapter.Number); err != nil {
		respondStoreError(w, err, "bookmark")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"work_id":             workID,
		"last_chapter_id":     chapter.ID,
		"last_chapter_number": chapter.Number,
	}, start)
}

// UpdateNotify handles PUT /api/v1/works/{id}/bookmark/notify, toggling
// new-chapter notifications on the caller's bookmark.
func (h *Handler) UpdateNotify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	workID := chi.URLParam(r, "id")

	var req models.UpdateNotifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.db.UpdateNotify(r.Context(), subject.UserID, workID, req.Notify); err != nil {
		respondStoreError(w, err, "bookmark")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]bool{"notify": req.Notify}, start)
}

// visibleWork loads the work in the URL and applies draft visibility.
// On failure it has already responded.
func (h *Handler) visibleWork(w http.ResponseWriter, r *http.Request) (*models.Work, bool) {
	work, err := h.db.GetWorkByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "work")
		return nil, false
	}
	if work == nil || !h.canSeeWork(r, work) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Work not found", nil)
		return nil, false
	}
	return work, true
}
