// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/config"
)

func testBillingConfig(providerURL string) config.BillingConfig {
	return config.BillingConfig{
		Enabled:           true,
		ProviderURL:       providerURL,
		APIKey:            "sk_test_key",
		WebhookSecret:     "whsec_test",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000, // High enough that the limiter never blocks in tests
	}
}

func TestStartCheckout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_key" {
			t.Errorf("unexpected Authorization header: %q", auth)
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if payload["user_id"] != "user-1" {
			t.Errorf("expected user_id user-1, got %q", payload["user_id"])
		}
		if payload["tier"] != "premium" {
			t.Errorf("expected tier premium, got %q", payload["tier"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"provider_ref":"sub_abc123","checkout_url":"https://pay.example.com/c/abc123"}`))
	}))
	defer server.Close()

	client := NewClient(testBillingConfig(server.URL))

	session, err := client.StartCheckout(context.Background(), "user-1", "premium")
	if err != nil {
		t.Fatalf("StartCheckout failed: %v", err)
	}
	if session.ProviderRef != "sub_abc123" {
		t.Errorf("expected provider ref sub_abc123, got %q", session.ProviderRef)
	}
	if session.CheckoutURL != "https://pay.example.com/c/abc123" {
		t.Errorf("unexpected checkout URL: %q", session.CheckoutURL)
	}
}

func TestCancelAtPeriodEnd(t *testing.T) {
	t.Parallel()

	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions/sub_abc123/cancel" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		resp := CancelResult{Status: "canceled", PeriodEnd: &periodEnd}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(testBillingConfig(server.URL))

	result, err := client.CancelAtPeriodEnd(context.Background(), "sub_abc123")
	if err != nil {
		t.Fatalf("CancelAtPeriodEnd failed: %v", err)
	}
	if result.Status != "canceled" {
		t.Errorf("expected status canceled, got %q", result.Status)
	}
	if result.PeriodEnd == nil || !result.PeriodEnd.Equal(periodEnd) {
		t.Errorf("unexpected period end: %v", result.PeriodEnd)
	}
}

func TestClientDisabled(t *testing.T) {
	t.Parallel()

	cfg := testBillingConfig("https://pay.example.com")
	cfg.Enabled = false
	client := NewClient(cfg)

	if client.Enabled() {
		t.Error("expected Enabled() to be false")
	}

	_, err := client.StartCheckout(context.Background(), "user-1", "supporter")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}

	_, err = client.CancelAtPeriodEnd(context.Background(), "sub_abc123")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestProviderErrorResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream timeout"}`))
	}))
	defer server.Close()

	client := NewClient(testBillingConfig(server.URL))

	_, err := client.StartCheckout(context.Background(), "user-1", "supporter")
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status code in error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "upstream timeout") {
		t.Errorf("expected provider error body in error, got: %v", err)
	}
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testBillingConfig(server.URL))
	ctx := context.Background()

	// The breaker needs at least 10 requests before it evaluates the
	// failure ratio; every one of these fails.
	for i := 0; i < 10; i++ {
		if _, err := client.StartCheckout(ctx, "user-1", "supporter"); err == nil {
			t.Fatalf("expected failure on request %d", i+1)
		}
	}

	seen := requests

	// Circuit is now open: the next call must be rejected without
	// reaching the provider.
	_, err := client.StartCheckout(ctx, "user-1", "supporter")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once circuit is open, got %v", err)
	}
	if requests != seen {
		t.Errorf("rejected request reached the provider (%d -> %d requests)", seen, requests)
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"provider_ref":"sub_1","checkout_url":"https://pay.example.com/c/1"}`))
	}))
	defer server.Close()

	client := NewClient(testBillingConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.StartCheckout(ctx, "user-1", "supporter")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
