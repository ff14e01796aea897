// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/media"
	"github.com/paperbound/paperbound/internal/metrics"
	"github.com/paperbound/paperbound/internal/models"
)

// CreateChapter handles POST /api/v1/works/{id}/chapters. The chapter
// number is assigned inside the insert transaction.
func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	work, ok := h.ownedWork(w, r)
	if !ok {
		return
	}
	if work.Status == models.WorkStatusArchived {
		respondError(w, http.StatusConflict, "CONFLICT", "Archived works accept no new chapters", nil)
		return
	}

	var req models.CreateChapterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	minTier := req.MinTier
	if minTier == "" {
		minTier = work.MinTier
	}

	now := time.Now().UTC()
	chapter := &models.Chapter{
		ID:        uuid.New().String(),
		WorkID:    work.ID,
		Title:     req.Title,
		Body:      req.Body,
		Status:    models.ChapterStatusDraft,
		MinTier:   minTier,
		WordCount: countWords(req.Body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.db.CreateChapter(r.Context(), chapter); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create chapter", err)
		return
	}

	respondSuccess(w, http.StatusCreated, chapter, start)
}

// GetChapter handles GET /api/v1/chapters/{id}. Drafts and scheduled
// chapters are author/moderator only; published chapters require the
// caller's tier to meet the chapter's min_tier.
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	chapter, err := h.db.GetChapterByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "chapter")
		return
	}
	if chapter == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return
	}

	work, err := h.db.GetWorkByID(r.Context(), chapter.WorkID)
	if err != nil {
		respondStoreError(w, err, "work")
		return
	}
	if work == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return
	}

	isStaff := subject != nil &&
		(work.AuthorID == subject.UserID || models.RoleAtLeast(subject.Role, models.RoleModerator))

	if !chapter.IsPublished() || work.Status == models.WorkStatusDraft {
		if !isStaff {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
			return
		}
	} else if !isStaff {
		tier := models.TierFree
		if subject != nil {
			tier = subject.Tier
		}
		if !models.TierAtLeast(tier, chapter.MinTier) {
			respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR",
				"This chapter is early access for "+chapter.MinTier+" members", nil)
			return
		}

		// A chapter read counts as a view of the work.
		if err := h.db.IncrementViewCount(r.Context(), work.ID); err != nil {
			logging.Warn().Err(err).Str("work_id", work.ID).Msg("Failed to count view")
		}
	}

	respondSuccess(w, http.StatusOK, chapter, start)
}

// ListChapters handles GET /api/v1/works/{id}/chapters. Readers only see
// published chapters; the author and moderators see all rows.
func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	work, err := h.db.GetWorkByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "work")
		return
	}
	if work == nil || !h.canSeeWork(r, work) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Work not found", nil)
		return
	}

	isStaff := subject != nil &&
		(work.AuthorID == subject.UserID || models.RoleAtLeast(subject.Role, models.RoleModerator))

	chapters, err := h.db.ListChapters(r.Context(), work.ID, !isStaff)
	if err != nil {
		respondStoreError(w, err, "chapters")
		return
	}

	respondSuccess(w, http.StatusOK, models.ChapterListResponse{Chapters: chapters}, start)
}

// UpdateChapter handles PUT /api/v1/chapters/{id}.
func (h *Handler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chapter, _, ok := h.ownedChapter(w, r)
	if !ok {
		return
	}

	var req models.UpdateChapterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.Body != nil {
		chapter.Body = *req.Body
		chapter.WordCount = countWords(*req.Body)
	}
	if req.MinTier != nil {
		chapter.MinTier = *req.MinTier
	}

	if err := h.db.UpdateChapter(r.Context(), chapter); err != nil {
		respondStoreError(w, err, "chapter")
		return
	}

	respondSuccess(w, http.StatusOK, chapter, start)
}

// DeleteChapter handles DELETE /api/v1/chapters/{id}. Published chapters
// cannot be deleted.
func (h *Handler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chapter, _, ok := h.ownedChapter(w, r)
	if !ok {
		return
	}
	if chapter.IsPublished() {
		respondError(w, http.StatusConflict, "CONFLICT", "Published chapters cannot be deleted", nil)
		return
	}

	if err := h.db.DeleteChapter(r.Context(), chapter.ID); err != nil {
		respondStoreError(w, err, "chapter")
		return
	}

	for _, page := range chapter.Pages {
		if err := h.media.Delete(page); err != nil {
			logging.Warn().Err(err).Str("chapter_id", chapter.ID).Msg("Failed to delete page")
		}
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "chapter deleted"}, start)
}

// PublishChapter handles POST /api/v1/chapters/{id}/publish. Without a
// body (or with a past timestamp omitted) the chapter goes live now and
// the chapter.published event fans out to bookmarkers; with a future
// scheduled_for it is queued for the release sweep.
func (h *Handler) PublishChapter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chapter, work, ok := h.ownedChapter(w, r)
	if !ok {
		return
	}
	if work.Status == models.WorkStatusArchived {
		respondError(w, http.StatusConflict, "CONFLICT", "Archived works accept no new releases", nil)
		return
	}
	if chapter.IsPublished() {
		respondSuccess(w, http.StatusOK, chapter, start)
		return
	}

	var req models.PublishChapterRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	if req.ScheduledFor != nil {
		if !req.ScheduledFor.After(now) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "scheduled_for must be in the future", nil)
			return
		}

		if err := h.db.PublishChapter(r.Context(), chapter.ID, req.ScheduledFor); err != nil {
			respondStoreError(w, err, "chapter")
			return
		}
		chapter.Status = models.ChapterStatusScheduled
		chapter.ScheduledFor = req.ScheduledFor
		respondSuccess(w, http.StatusOK, chapter, start)
		return
	}

	if err := h.db.PublishChapter(r.Context(), chapter.ID, nil); err != nil {
		respondStoreError(w, err, "chapter")
		return
	}
	metrics.RecordChapterRelease("manual", 0)

	if h.publisher != nil {
		err := h.publisher.ChapterPublished(&events.ChapterPublished{
			EventID:       events.NewEventID(),
			WorkID:        work.ID,
			WorkTitle:     work.Title,
			AuthorID:      work.AuthorID,
			ChapterID:     chapter.ID,
			ChapterNumber: chapter.Number,
			ChapterTitle:  chapter.Title,
			MinTier:       chapter.MinTier,
			OccurredAt:    now,
		})
		if err != nil {
			logging.Error().Err(err).Str("chapter_id", chapter.ID).Msg("Failed to publish chapter event")
		}
	}

	chapter.Status = models.ChapterStatusPublished
	chapter.PublishedAt = &now
	respondSuccess(w, http.StatusOK, chapter, start)
}

// UploadPages handles POST /api/v1/chapters/{id}/pages, appending comic
// pages in upload order. Story chapters have no pages.
func (h *Handler) UploadPages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chapter, work, ok := h.ownedChapter(w, r)
	if !ok {
		return
	}
	if work.Kind != models.WorkKindComic {
		respondError(w, http.StatusConflict, "CONFLICT", "Only comic chapters carry pages", nil)
		return
	}

	if err := r.ParseMultipartForm(h.cfg.Media.MaxPageBytes + 1<<20); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart body", err)
		return
	}
	files := r.MultipartForm.File["pages"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Multipart field 'pages' required", nil)
		return
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read upload", err)
			return
		}

		relPath, err := h.media.Save(media.KindPage, f)
		_ = f.Close()
		if err != nil {
			metrics.RecordMediaUpload(media.KindPage, "failure", 0)
			respondMediaError(w, err)
			return
		}
		metrics.RecordMediaUpload(media.KindPage, "success", fh.Size)
		chapter.Pages = append(chapter.Pages, relPath)
	}

	if err := h.db.UpdateChapter(r.Context(), chapter); err != nil {
		respondStoreError(w, err, "chapter")
		return
	}

	respondSuccess(w, http.StatusOK, chapter, start)
}

// ownedChapter loads the chapter in the URL along with its work and
// authorizes the caller as the work's author or a moderator.
func (h *Handler) ownedChapter(w http.ResponseWriter, r *http.Request) (*models.Chapter, *models.Work, bool) {
	subject := auth.SubjectFromContext(r.Context())

	chapter, err := h.db.GetChapterByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "chapter")
		return nil, nil, false
	}
	if chapter == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return nil, nil, false
	}

	work, err := h.db.GetWorkByID(r.Context(), chapter.WorkID)
	if err != nil {
		respondStoreError(w, err, "work")
		return nil, nil, false
	}
	if work == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Chapter not found", nil)
		return nil, nil, false
	}

	if work.AuthorID != subject.UserID && !models.RoleAtLeast(subject.Role, models.RoleModerator) {
		metrics.RecordAuthorizationDenial("chapters", "write")
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Not your work", nil)
		return nil, nil, false
	}

	return chapter, work, true
}

// countWords counts whitespace-separated tokens in a chapter body.
func countWords(body string) int64 {
	return int64(len(strings.Fields(body)))
}
