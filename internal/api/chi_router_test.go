// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"testing"

	"github.com/paperbound/paperbound/internal/models"
)

func TestRouterUnknownRoute(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/does-not-exist", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want code NOT_FOUND", env.Error)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodDelete, "/api/v1/tiers", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}

	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want code VALIDATION_ERROR", env.Error)
	}
}

func TestRouterSecurityHeaders(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("header %s = %q, want %q", name, got, want)
		}
	}
}

func TestRouterAuthGating(t *testing.T) {
	api := setupTestAPI(t)
	_, readerCookie := api.registerAs(t, "gatereader", models.RoleReader)

	tests := []struct {
		name   string
		method string
		path   string
		cookie bool
		want   int
	}{
		{"me without token", http.MethodGet, "/api/v1/auth/me", false, http.StatusUnauthorized},
		{"create work without token", http.MethodPost, "/api/v1/works", false, http.StatusUnauthorized},
		{"library without token", http.MethodGet, "/api/v1/me/library", false, http.StatusUnauthorized},
		{"reader cannot create works", http.MethodPost, "/api/v1/works", true, http.StatusForbidden},
		{"reader cannot read admin stats", http.MethodGet, "/api/v1/admin/stats", true, http.StatusForbidden},
		{"reader can read own library", http.MethodGet, "/api/v1/me/library", true, http.StatusOK},
		{"browse is public", http.MethodGet, "/api/v1/works", false, http.StatusOK},
		{"tiers are public", http.MethodGet, "/api/v1/tiers", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cookie *http.Cookie
			if tt.cookie {
				cookie = readerCookie
			}
			rec := api.do(t, tt.method, tt.path, nil, cookie)
			if rec.Code != tt.want {
				t.Errorf("%s %s status = %d, want %d (body: %s)",
					tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRouterAdminAccess(t *testing.T) {
	api := setupTestAPI(t)
	_, adminCookie := api.registerAs(t, "statadmin", models.RoleAdmin)

	rec := api.do(t, http.MethodGet, "/api/v1/admin/stats", nil, adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin stats status = %d, want %d (body: %s)",
			rec.Code, http.StatusOK, rec.Body.String())
	}
}
