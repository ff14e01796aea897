// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/media"
	"github.com/paperbound/paperbound/internal/metrics"
	"github.com/paperbound/paperbound/internal/models"
)

// maxSlugLength caps generated slugs; suffixes are appended past the cap.
const maxSlugLength = 80

// CreateWork handles POST /api/v1/works, creating a draft work for the
// current author.
//
//	@Summary		Create a draft work
//	@Tags			works
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.CreateWorkRequest	true	"Work details"
//	@Success		201		{object}	models.APIResponse{data=models.Work}
//	@Router			/works [post]
func (h *Handler) CreateWork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.CreateWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	slug, err := h.uniqueSlug(r, req.Title)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to allocate slug", err)
		return
	}

	minTier := req.MinTier
	if minTier == "" {
		minTier = models.TierFree
	}

	now := time.Now().UTC()
	work := &models.Work{
		ID:        uuid.New().String(),
		AuthorID:  subject.UserID,
		Title:     req.Title,
		Slug:      slug,
		Kind:      req.Kind,
		Summary:   req.Summary,
		Genres:    req.Genres,
		Tags:      req.Tags,
		Status:    models.WorkStatusDraft,
		MinTier:   minTier,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.db.CreateWork(r.Context(), work); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create work", err)
		return
	}

	logging.Info().
		Str("work_id", work.ID).
		Str("author_id", subject.UserID).
		Str("kind", work.Kind).
		Msg("Work created")

	respondSuccess(w, http.StatusCreated, work, start)
}

// GetWork handles GET /api/v1/works/{id}. Drafts are visible only to
// their author and moderators; views of published works are counted.
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	h.getWork(w, r, func() (*models.Work, error) {
		return h.db.GetWorkByID(r.Context(), chi.URLParam(r, "id"))
	})
}

// GetWorkBySlug handles GET /api/v1/works/slug/{slug}.
func (h *Handler) GetWorkBySlug(w http.ResponseWriter, r *http.Request) {
	h.getWork(w, r, func() (*models.Work, error) {
		return h.db.GetWorkBySlug(r.Context(), chi.URLParam(r, "slug"))
	})
}

func (h *Handler) getWork(w http.ResponseWriter, r *http.Request, lookup func() (*models.Work, error)) {
	start := time.Now()

	work, err := lookup()
	if err != nil {
		respondStoreError(w, err, "work")
		return
	}
	if work == nil || !h.canSeeWork(r, work) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Work not found", nil)
		return
	}

	if work.IsPublished() {
		if err := h.db.IncrementViewCount(r.Context(), work.ID); err != nil {
			logging.Warn().Err(err).Str("work_id", work.ID).Msg("Failed to count view")
		}
	}

	respondSuccess(w, http.StatusOK, work, start)
}

// UpdateWork handles PUT /api/v1/works/{id}, a partial metadata update
// by the owner or a moderator.
func (h *Handler) UpdateWork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	work, ok := h.ownedWork(w, r)
	if !ok {
		return
	}

	var req models.UpdateWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if req.Title != nil {
		work.Title = *req.Title
	}
	if req.Summary != nil {
		work.Summary = *req.Summary
	}
	if req.Genres != nil {
		work.Genres = *req.Genres
	}
	if req.Tags != nil {
		work.Tags = *req.Tags
	}
	if req.MinTier != nil {
		work.MinTier = *req.MinTier
	}

	if err := h.db.UpdateWork(r.Context(), work); err != nil {
		respondStoreError(w, err, "work")
		return
	}

	respondSuccess(w, http.StatusOK, work, start)
}

// DeleteWork handles DELETE /api/v1/works/{id}. Only drafts can be
// deleted; published works archive instead so reader libraries and
// reviews stay intact.
func (h *Handler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	work, ok := h.ownedWork(w, r)
	if !ok {
		return
	}
	if work.Status != models.WorkStatusDraft {
		respondError(w, http.StatusConflict, "CONFLICT",
			"Only draft works can be deleted; archive published works instead", nil)
		return
	}

	if err := h.db.DeleteWork(r.Context(), work.ID); err != nil {
		respondStoreError(w, err, "work")
		return
	}
	if work.CoverPath != "" {
		if err := h.media.Delete(work.CoverPath); err != nil {
			logging.Warn().Err(err).Str("work_id", work.ID).Msg("Failed to delete cover")
		}
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "work deleted"}, start)
}

// PublishWork handles POST /api/v1/works/{id}/publish.
func (h *Handler) PublishWork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	work, ok := h.ownedWork(w, r)
	if !ok {
		return
	}
	if work.Status == models.WorkStatusArchived {
		respondError(w, http.StatusConflict, "CONFLICT", "Archived works cannot be republished", nil)
		return
	}
	if work.IsPublished() {
		respondSuccess(w, http.StatusOK, work, start)
		return
	}
	if work.ChapterCount == 0 {
		respondError(w, http.StatusConflict, "CONFLICT", "Publish requires at least one chapter", nil)
		return
	}

	if err := h.db.UpdateWorkStatus(r.Context(), work.ID, models.WorkStatusPublished); err != nil {
		respondStoreError(w, err, "work")
		return
	}

	if h.publisher != nil {
		err := h.publisher.WorkPublished(&events.WorkPublished{
			EventID:    events.NewEventID(),
			WorkID:     work.ID,
			WorkTitle:  work.Title,
			AuthorID:   work.AuthorID,
			Kind:       work.Kind,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			logging.Error().Err(err).Str("work_id", work.ID).Msg("Failed to publish work event")
		}
	}

	work.Status = models.WorkStatusPublished
	respondSuccess(w, http.StatusOK, work, start)
}

// UnpublishWork handles POST /api/v1/works/{id}/unpublish, returning a
// published work to draft.
func (h *Handler) UnpublishWork(w http.ResponseWriter, r *http.Request) {
	h.transitionWork(w, r, models.WorkStatusPublished, models.WorkStatusDraft)
}

// ArchiveWork handles POST /api/v1/works/{id}/archive. Archived works
// stay readable but accept no new chapters.
func (h *Handler) ArchiveWork(w http.ResponseWriter, r *http.Request) {
	h.transitionWork(w, r, models.WorkStatusPublished, models.WorkStatusArchived)
}

func (h *Handler) transitionWork(w http.ResponseWriter, r *http.Request, from, to string) {
	start := time.Now()

	work, ok := h.ownedWork(w, r)
	if !ok {
		return
	}
	if work.Status != from {
		respondError(w, http.StatusConflict, "CONFLICT",
			fmt.Sprintf("Work must be %s to become %s", from, to), nil)
		return
	}

	if err := h.db.UpdateWorkStatus(r.Context(), work.ID, to); err != nil {
		respondStoreError(w, err, "work")
		return
	}

	work.Status = to
	respondSuccess(w, http.StatusOK, work, start)
}

// UploadCover handles POST /api/v1/works/{id}/cover, a multipart image
// upload replacing the work's cover.
func (h *Handler) UploadCover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	work, ok := h.ownedWork(w, r)
	if !ok {
		return
	}

	file, _, err := r.FormFile("cover")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Multipart field 'cover' required", err)
		return
	}
	defer file.Close() //nolint:errcheck // read-only handle

	relPath, err := h.media.Save(media.KindCover, file)
	if err != nil {
		metrics.RecordMediaUpload(media.KindCover, "failure", 0)
		respondMediaError(w, err)
		return
	}
	metrics.RecordMediaUpload(media.KindCover, "success", 0)

	oldCover := work.CoverPath
	work.CoverPath = relPath
	if err := h.db.UpdateWork(r.Context(), work); err != nil {
		respondStoreError(w, err, "work")
		return
	}
	if oldCover != "" && oldCover != relPath {
		if err := h.media.Delete(oldCover); err != nil {
			logging.Warn().Err(err).Str("work_id", work.ID).Msg("Failed to delete replaced cover")
		}
	}

	respondSuccess(w, http.StatusOK, work, start)
}

// BrowseWorks handles GET /api/v1/works, the public browse listing.
// Non-moderators only ever see published works regardless of the status
// filter.
func (h *Handler) BrowseWorks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	offset, limit := h.pageWindow(r)
	filter := models.WorkListFilter{
		Kind:     r.URL.Query().Get("kind"),
		Genre:    r.URL.Query().Get("genre"),
		Tag:      r.URL.Query().Get("tag"),
		AuthorID: r.URL.Query().Get("author_id"),
		Status:   models.WorkStatusPublished,
		Query:    r.URL.Query().Get("q"),
		Sort:     r.URL.Query().Get("sort"),
		Offset:   offset,
		Limit:    limit,
	}

	// Authors may list their own drafts; moderators anyone's.
	subject := auth.SubjectFromContext(r.Context())
	if status := r.URL.Query().Get("status"); status != "" && subject != nil {
		if models.RoleAtLeast(subject.Role, models.RoleModerator) || filter.AuthorID == subject.UserID {
			filter.Status = status
		}
	}

	if filter.Kind != "" && !models.IsValidWorkKind(filter.Kind) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid work kind", nil)
		return
	}
	if filter.Sort != "" && !models.IsValidWorkSort(filter.Sort) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid sort key", nil)
		return
	}

	works, total, err := h.db.ListWorks(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err, "works")
		return
	}

	respondSuccess(w, http.StatusOK, models.WorkListResponse{
		Works:      works,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// SearchWorks handles GET /api/v1/search, a title/author match over
// published works.
func (h *Handler) SearchWorks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Query parameter 'q' required", nil)
		return
	}

	offset, limit := h.pageWindow(r)
	works, total, err := h.db.ListWorks(r.Context(), models.WorkListFilter{
		Status: models.WorkStatusPublished,
		Query:  query,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		respondStoreError(w, err, "works")
		return
	}
	metrics.RecordSearchQuery(time.Since(start))

	respondSuccess(w, http.StatusOK, models.WorkListResponse{
		Works:      works,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}

// ListGenres handles GET /api/v1/genres.
func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	h.listTerms(w, r, h.db.ListGenres)
}

// ListTags handles GET /api/v1/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	h.listTerms(w, r, h.db.ListTags)
}

func (h *Handler) listTerms(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context) ([]models.TermCount, error)) {
	start := time.Now()

	terms, err := list(r.Context())
	if err != nil {
		respondStoreError(w, err, "terms")
		return
	}

	respondSuccess(w, http.StatusOK, map[string][]models.TermCount{"terms": terms}, start)
}

// ownedWork loads the work from the URL and authorizes the caller as its
// author or a moderator. On failure it has already responded.
func (h *Handler) ownedWork(w http.ResponseWriter, r *http.Request) (*models.Work, bool) {
	subject := auth.SubjectFromContext(r.Context())

	work, err := h.db.GetWorkByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "work")
		return nil, false
	}
	if work == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Work not found", nil)
		return nil, false
	}

	if work.AuthorID != subject.UserID && !models.RoleAtLeast(subject.Role, models.RoleModerator) {
		metrics.RecordAuthorizationDenial("works", "write")
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Not your work", nil)
		return nil, false
	}

	return work, true
}

// canSeeWork applies draft visibility: drafts are only visible to their
// author and moderators.
func (h *Handler) canSeeWork(r *http.Request, work *models.Work) bool {
	if work.Status != models.WorkStatusDraft {
		return true
	}
	subject := auth.SubjectFromContext(r.Context())
	if subject == nil {
		return false
	}
	return work.AuthorID == subject.UserID || models.RoleAtLeast(subject.Role, models.RoleModerator)
}

// respondMediaError maps media store errors onto HTTP statuses.
func respondMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "File exceeds size limit", nil)
	case errors.Is(err, media.ErrUnsupportedType):
		respondError(w, http.StatusUnsupportedMediaType, "VALIDATION_ERROR",
			"Only png, jpeg, webp, and gif images are accepted", nil)
	default:
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to store upload", err)
	}
}

// uniqueSlug derives a URL slug from the title and uniquifies it with a
// numeric suffix when taken.
func (h *Handler) uniqueSlug(r *http.Request, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "untitled"
	}

	slug := base
	for i := 2; ; i++ {
		taken, err := h.db.SlugExists(r.Context(), slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// slugify lowercases the title and collapses non-alphanumeric runs into
// single hyphens.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
