// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/authz"
	"github.com/paperbound/paperbound/internal/billing"
	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/database"
	"github.com/paperbound/paperbound/internal/media"
	"github.com/paperbound/paperbound/internal/middleware"
	"github.com/paperbound/paperbound/internal/models"
	"github.com/paperbound/paperbound/internal/websocket"
)

// testWebhookSecret signs billing webhook deliveries in tests.
const testWebhookSecret = "test-webhook-secret-for-billing"

// testPassword satisfies the registration password policy for every
// test account.
const testPassword = "turning-the-page7"

// apiTestSemaphore serializes DuckDB creation across handler tests.
// Concurrent in-memory database startup via CGO can hang under
// resource pressure, so one test owns a live database at a time.
var apiTestSemaphore = make(chan struct{}, 1)

// testAPI bundles a fully wired router with direct handles on the
// stores behind it, so tests can both drive HTTP and inspect state.
type testAPI struct {
	mux *chi.Mux
	db  *database.DB
	cfg *config.Config
	hub *websocket.Hub
}

// setupTestAPI builds the complete request path: in-memory DuckDB,
// local auth with a memory session store, the embedded Casbin policy,
// and the production router with rate limiting disabled.
func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()

	apiTestSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-apiTestSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	cfg := &config.Config{
		API: config.APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: config.SecurityConfig{
			JWTSecret:        "test-jwt-secret-0123456789abcdef0123456789abcdef",
			SessionTimeout:   time.Hour,
			SessionStore:     "memory",
			LockoutThreshold: 5,
			LockoutDuration:  time.Minute,
			CORSOrigins:      []string{"*"},
		},
		Media: config.MediaConfig{
			Root:          t.TempDir(),
			MaxCoverBytes: 1 << 20,
			MaxPageBytes:  1 << 20,
		},
		Billing: config.BillingConfig{
			WebhookSecret: testWebhookSecret,
		},
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	sessions := auth.NewMemorySessionStore()
	lockout := auth.NewLockoutManager(auth.NewMemoryLockoutStore(),
		cfg.Security.LockoutThreshold, cfg.Security.LockoutDuration)
	authService := auth.NewService(db, sessions, jwtManager, lockout)

	enforcer, err := authz.NewEnforcer(config.CasbinConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer failed: %v", err)
	}

	mediaStore, err := media.NewStore(cfg.Media)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	hub := websocket.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go func() {
		_ = hub.RunWithContext(hubCtx)
	}()
	t.Cleanup(stopHub)

	handler := NewHandler(HandlerConfig{
		DB:      db,
		Config:  cfg,
		Auth:    authService,
		Media:   mediaStore,
		Billing: billing.NewClient(cfg.Billing),
		WSHub:   hub,
		PerfMon: middleware.NewPerformanceMonitor(100),
	})

	chiCfg := DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = []string{"*"}
	chiCfg.RateLimitDisabled = true

	router := NewRouter(handler,
		auth.NewMiddleware(jwtManager, sessions),
		authz.NewMiddleware(enforcer),
		NewChiMiddleware(chiCfg))

	return &testAPI{
		mux: router.SetupChi(),
		db:  db,
		cfg: cfg,
		hub: hub,
	}
}

// do runs one request through the router. A nil body sends no payload;
// anything else is JSON-encoded. The cookie, when present, carries the
// login token.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors the response wrapper for assertions. Data stays raw
// so each test decodes only the part it cares about.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error,omitempty"`
}

// decodeEnvelope parses a recorded response body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

// decodeData unmarshals the envelope's data field into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode response data: %v (data: %s)", err, string(env.Data))
	}
}

// registerUser creates an account over HTTP and returns its ID.
func (a *testAPI) registerUser(t *testing.T, username string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register(%s) status = %d, want %d (body: %s)",
			username, rec.Code, http.StatusCreated, rec.Body.String())
	}

	var user models.User
	decodeData(t, rec, &user)
	return user.ID
}

// login authenticates over HTTP and returns the session cookie.
func (a *testAPI) login(t *testing.T, username string) *http.Cookie {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Username: username,
		Password: testPassword,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Login(%s) status = %d, want %d (body: %s)",
			username, rec.Code, http.StatusOK, rec.Body.String())
	}

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.TokenCookieName {
			return cookie
		}
	}
	t.Fatalf("Login(%s) response did not set the token cookie", username)
	return nil
}

// registerAs creates an account, promotes it to the given role, and
// logs in. Promotion happens before login so the token carries the
// final role.
func (a *testAPI) registerAs(t *testing.T, username, role string) (string, *http.Cookie) {
	t.Helper()

	userID := a.registerUser(t, username)
	if role != models.RoleReader {
		if err := a.db.UpdateUserRole(context.Background(), userID, role); err != nil {
			t.Fatalf("UpdateUserRole(%s, %s) failed: %v", username, role, err)
		}
	}
	return userID, a.login(t, username)
}
