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
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// RateWork handles PUT /api/v1/works/{id}/rating, an upsert of the
// caller's score and optional review. The work's rating aggregates are
// adjusted in the same transaction as the rating row.
func (h *Handler) RateWork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	work, ok := h.visibleWork(w, r)
	if !ok {
		return
	}
	if !work.IsPublished() && work.Status != models.WorkStatusArchived {
		respondError(w, http.StatusConflict, "CONFLICT", "Only published works can be rated", nil)
		return
	}
	if subject.UserID == work.AuthorID {
		respondError(w, http.StatusConflict, "CONFLICT", "You cannot rate your own work", nil)
		return
	}

	var req models.RateWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	rating := &models.Rating{
		UserID: subject.UserID,
		WorkID: work.ID,
		Score:  req.Score,
		Review: req.Review,
	}

	created, err := h.db.UpsertRating(r.Context(), rating)
	if err != nil {
		respondStoreError(w, err, "rating")
		return
	}

	if created && h.publisher != nil {
		err := h.publisher.RatingCreated(&events.RatingCreated{
			EventID:    events.NewEventID(),
			WorkID:     work.ID,
			WorkTitle:  work.Title,
			AuthorID:   work.AuthorID,
			UserID:     subject.UserID,
			Stars:      req.Score,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			logging.Error().Err(err).Str("work_id", work.ID).Msg("Failed to publish rating event")
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondSuccess(w, status, rating, start)
}

// DeleteRating handles DELETE /api/v1/works/{id}/rating.
func (h *Handler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	if err := h.db.DeleteRating(r.Context(), subject.UserID, chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err, "rating")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "rating removed"}, start)
}

// GetMyRating handles GET /api/v1/works/{id}/rating, the caller's own
// rating of the work.
func (h *Handler) GetMyRating(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	rating, err := h.db.GetRating(r.Context(), subject.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "rating")
		return
	}
	if rating == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "You have not rated this work", nil)
		return
	}

	respondSuccess(w, http.StatusOK, rating, start)
}

// ListReviews handles GET /api/v1/works/{id}/ratings, a page of ratings
// with non-empty review text.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	work, ok := h.visibleWork(w, r)
	if !ok {
		return
	}

	offset, limit := h.pageWindow(r)
	ratings, total, err := h.db.ListReviews(r.Context(), work.ID, offset, limit)
	if err != nil {
		respondStoreError(w, err, "reviews")
		return
	}

	respondSuccess(w, http.StatusOK, models.RatingListResponse{
		Ratings:    ratings,
		Pagination: models.NewPaginationInfo(offset, limit, total),
	}, start)
}
