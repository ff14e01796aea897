// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"errors"
	"net/http"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/metrics"
)

// OIDCLogin handles GET /api/v1/auth/oidc/login. Redirects the browser
// to the configured identity provider.
func (h *Handler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"OIDC login is not configured", nil)
		return
	}

	authURL, _ := h.oidc.AuthURL()
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OIDCCallback handles GET /api/v1/auth/oidc/callback. Exchanges the
// authorization code, provisions the account on first login, and issues
// the same session cookie as a password login.
func (h *Handler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"OIDC login is not configured", nil)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Missing code or state parameter", nil)
		return
	}

	identity, err := h.oidc.Exchange(r.Context(), code, state)
	if err != nil {
		metrics.RecordLogin(auth.ProviderOIDC, "failure")
		if errors.Is(err, auth.ErrInvalidOIDCState) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"Invalid or expired login state", nil)
			return
		}
		logging.Warn().Err(err).Msg("OIDC code exchange failed")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"Identity provider rejected the login", nil)
		return
	}

	result, err := h.auth.LoginOIDC(r.Context(), identity, clientInfo(r))
	if err != nil {
		metrics.RecordLogin(auth.ProviderOIDC, "failure")
		if errors.Is(err, auth.ErrAccountSuspended) {
			respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR",
				"Account is suspended", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to complete login", err)
		return
	}
	metrics.RecordLogin(auth.ProviderOIDC, "success")

	h.setTokenCookie(w, result.Token, result.Session.ExpiresAt, true)
	http.Redirect(w, r, "/", http.StatusFound)
}
