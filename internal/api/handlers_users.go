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

// UpdateProfile handles PUT /api/v1/users/me, a partial update of the
// caller's display name and bio.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), subject.UserID)
	if err != nil {
		respondStoreError(w, err, "account")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Account not found", nil)
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if err := h.db.UpdateUserProfile(r.Context(), user); err != nil {
		respondStoreError(w, err, "profile")
		return
	}

	respondSuccess(w, http.StatusOK, user, start)
}

// GetProfile handles GET /api/v1/users/{username}, the public profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	username := chi.URLParam(r, "username")
	user, err := h.db.GetUserByUsername(r.Context(), username)
	if err != nil {
		respondStoreError(w, err, "profile")
		return
	}
	if user == nil || user.IsSuspended() {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Profile not found", nil)
		return
	}

	respondSuccess(w, http.StatusOK, user.Public(), start)
}
