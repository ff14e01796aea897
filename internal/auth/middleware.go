// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// TokenCookieName is the HTTP-only cookie set at login.
const TokenCookieName = "paperbound_token"

// Middleware authenticates requests. A token is honored only while the
// session it was issued against still exists, so logout revokes tokens
// before their expiry.
type Middleware struct {
	jwt      *JWTManager
	sessions SessionStore
}

// NewMiddleware creates authentication middleware.
func NewMiddleware(jwt *JWTManager, sessions SessionStore) *Middleware {
	return &Middleware{jwt: jwt, sessions: sessions}
}

// Authenticate enforces authentication. Requests without a valid token
// and live session are rejected with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticate(r)
		if err != nil {
			writeAuthError(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// Optional attaches the subject when a valid token is present and
// continues anonymously otherwise. Used on public endpoints whose
// responses vary for the content's author or moderators.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticate(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// RequireRole enforces a minimum role on top of authentication.
func (m *Middleware) RequireRole(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == nil || !models.RoleAtLeast(subject.Role, minRole) {
				writeForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}

// authenticate validates the request's token and backing session,
// sliding the session expiry on success.
func (m *Middleware) authenticate(r *http.Request) (*Subject, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		logging.Debug().Err(err).Msg("Token validation failed")
		return nil, ErrInvalidCredentials
	}

	session, err := m.sessions.Get(r.Context(), claims.SessionID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Sliding expiry: the session lives as long as it keeps being used.
	newExpiry := time.Now().Add(m.jwt.Timeout())
	if err := m.sessions.Touch(r.Context(), session.ID, newExpiry); err != nil {
		logging.Debug().Err(err).Msg("Failed to touch session")
	}

	// Role and tier come from the session, which admin actions update,
	// rather than from the immutable token.
	subject := session.Subject()
	subject.Provider = session.Provider
	return subject, nil
}

// extractToken extracts the JWT from the Authorization header or cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil {
			return "", ErrNoCredentials
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}

	return parts[1], nil
}

// writeAuthError writes a 401 response in the standard envelope.
func writeAuthError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", message)
}

// writeForbidden writes a 403 response in the standard envelope.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := models.APIResponse{
		Status:   "error",
		Error:    &models.APIError{Code: code, Message: message},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Error().Err(err).Msg("Error encoding auth error response")
	}
}
