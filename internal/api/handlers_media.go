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

	"github.com/paperbound/paperbound/internal/media"
)

// ServeMedia handles GET /media/*. Paths are content-addressed, so a
// byte change means a new path and the response can be cached forever.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	relPath := chi.URLParam(r, "*")

	f, contentType, _, err := h.media.Open(relPath)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidPath) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Media not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to open media", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, "", time.Time{}, f)
}
