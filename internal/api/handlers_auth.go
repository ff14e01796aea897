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

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/metrics"
	"github.com/paperbound/paperbound/internal/models"
)

// Register handles POST /api/v1/auth/register.
//
//	@Summary		Register a new account
//	@Description	Creates a reader account on the free tier
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.RegisterRequest	true	"Account details"
//	@Success		201		{object}	models.APIResponse
//	@Failure		400		{object}	models.APIResponse
//	@Failure		409		{object}	models.APIResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			respondError(w, http.StatusConflict, "CONFLICT", "Username already taken", nil)
		case errors.Is(err, auth.ErrEmailTaken):
			respondError(w, http.StatusConflict, "CONFLICT", "Email already registered", nil)
		case errors.Is(err, auth.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		default:
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create account", err)
		}
		return
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
		if err := h.db.UpdateUserProfile(r.Context(), user); err != nil {
			// The account exists; a failed display name write is not fatal.
			respondStoreError(w, err, "profile")
			return
		}
	}

	metrics.RecordRegistration(auth.ProviderLocal)
	respondSuccess(w, http.StatusCreated, user, start)
}

// Login handles POST /api/v1/auth/login.
//
//	@Summary		Log in
//	@Description	Verifies credentials and issues a JWT bound to a server-side session
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.LoginRequest	true	"Credentials"
//	@Success		200		{object}	models.APIResponse{data=models.LoginResponse}
//	@Failure		401		{object}	models.APIResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password, clientInfo(r))
	if err != nil {
		metrics.RecordLogin(auth.ProviderLocal, "failure")
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Account temporarily locked after repeated failures", nil)
		case errors.Is(err, auth.ErrAccountSuspended):
			respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Account suspended", nil)
		default:
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid credentials", nil)
		}
		return
	}

	metrics.RecordLogin(auth.ProviderLocal, "success")
	h.setTokenCookie(w, result.Token, result.Session.ExpiresAt, req.RememberMe)

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
		Username:  result.User.Username,
		Role:      result.User.Role,
		Tier:      result.User.Tier,
		UserID:    result.User.ID,
	}, start)
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	if err := h.auth.Logout(r.Context(), subject, clientInfo(r)); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to log out", err)
		return
	}

	h.clearTokenCookie(w)
	respondSuccess(w, http.StatusOK, map[string]string{"message": "logged out"}, start)
}

// LogoutAll handles POST /api/v1/auth/logout/all, revoking every session
// of the current user.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	count, err := h.auth.LogoutAll(r.Context(), subject, clientInfo(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to log out", err)
		return
	}

	h.clearTokenCookie(w)
	respondSuccess(w, http.StatusOK, map[string]int{"sessions_revoked": count}, start)
}

// Me handles GET /api/v1/auth/me, returning the current account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	user, err := h.db.GetUserByID(r.Context(), subject.UserID)
	if err != nil {
		respondStoreError(w, err, "account")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Account not found", nil)
		return
	}

	respondSuccess(w, http.StatusOK, user, start)
}

// Sessions handles GET /api/v1/auth/sessions, listing the current user's
// live sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	sessions, err := h.auth.ListSessions(r.Context(), subject.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list sessions", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"current":  subject.SessionID,
	}, start)
}

// RevokeSession handles DELETE /api/v1/auth/sessions/{id}.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID required", nil)
		return
	}

	if err := h.auth.RevokeSession(r.Context(), subject, sessionID, clientInfo(r)); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Session not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to revoke session", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "session revoked"}, start)
}

// ChangePassword handles PUT /api/v1/users/me/password. The old password
// is re-verified; other sessions are revoked on success.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), subject, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Old password is incorrect", nil)
			return
		}
		if errors.Is(err, auth.ErrWeakPassword) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to change password", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "password changed"}, start)
}

// setTokenCookie attaches the JWT as an HTTP-only cookie. Without
// remember-me the cookie is session-scoped so it dies with the browser.
func (h *Handler) setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time, remember bool) {
	cookie := &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = expiresAt
	}
	http.SetCookie(w, cookie)
}

// clearTokenCookie expires the JWT cookie.
func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
