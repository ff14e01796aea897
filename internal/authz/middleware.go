// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package authz

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// Middleware enforces the Casbin policy on route groups. It runs after
// the authentication middleware and reads the subject from the context.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Require enforces that the authenticated subject may perform the
// action on the object.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				writeAuthzError(w, http.StatusForbidden, "no authentication context")
				return
			}

			allowed, err := m.enforcer.EnforceWithRole(subject.UserID, subject.Role, object, action)
			if err != nil {
				logging.Error().Err(err).Msg("Authorization error")
				writeAuthzError(w, http.StatusInternalServerError, "authorization failed")
				return
			}

			if !allowed {
				writeAuthzError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRequest determines the action from the HTTP method and
// enforces it on the given object.
func (m *Middleware) RequireRequest(object string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.Require(object, methodToAction(r.Method))(next).ServeHTTP(w, r)
		})
	}
}

// methodToAction maps HTTP methods to policy actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

func writeAuthzError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	code := "AUTHORIZATION_ERROR"
	if status == http.StatusInternalServerError {
		code = "INTERNAL_ERROR"
	}

	response := models.APIResponse{
		Status:   "error",
		Error:    &models.APIError{Code: code, Message: message},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Error().Err(err).Msg("Error encoding authorization response")
	}
}
