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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/billing"
	"github.com/paperbound/paperbound/internal/models"
)

// postWebhook delivers a raw signed payload to the billing webhook.
func postWebhook(t *testing.T, api *testAPI, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/billing", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(billing.SignatureHeader, signature)
	}

	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	return rec
}

// seedPendingSubscription inserts a checkout-in-flight subscription the
// way StartSubscription would.
func seedPendingSubscription(t *testing.T, api *testAPI, userID, providerRef string) {
	t.Helper()

	now := time.Now().UTC()
	err := api.db.CreateSubscription(context.Background(), &models.Subscription{
		ID:          uuid.New().String(),
		UserID:      userID,
		Tier:        models.TierSupporter,
		Status:      models.SubscriptionStatusPending,
		ProviderRef: providerRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}
}

func TestBillingWebhookActivation(t *testing.T) {
	api := setupTestAPI(t)
	userID := api.registerUser(t, "patron")
	seedPendingSubscription(t, api, userID, "prov-activation")

	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour)
	body, err := json.Marshal(models.BillingWebhookEvent{
		EventID:     "evt-activate-1",
		Type:        models.BillingEventActivated,
		ProviderRef: "prov-activation",
		Tier:        models.TierSupporter,
		PeriodEnd:   &periodEnd,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to encode event: %v", err)
	}

	rec := postWebhook(t, api, body, billing.SignPayload(testWebhookSecret, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, want %d (body: %s)",
			rec.Code, http.StatusOK, rec.Body.String())
	}

	sub, err := api.db.GetSubscriptionByUserID(context.Background(), userID)
	if err != nil || sub == nil {
		t.Fatalf("GetSubscriptionByUserID = (%v, %v), want subscription", sub, err)
	}
	if sub.Status != models.SubscriptionStatusActive {
		t.Errorf("subscription status = %q, want %q", sub.Status, models.SubscriptionStatusActive)
	}

	user, err := api.db.GetUserByID(context.Background(), userID)
	if err != nil || user == nil {
		t.Fatalf("GetUserByID = (%v, %v), want user", user, err)
	}
	if user.Tier != models.TierSupporter {
		t.Errorf("user tier = %q, want %q", user.Tier, models.TierSupporter)
	}

	// Replaying the same event id is acknowledged without effect.
	rec = postWebhook(t, api, body, billing.SignPayload(testWebhookSecret, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want %d", rec.Code, http.StatusOK)
	}
	var ack map[string]string
	decodeData(t, rec, &ack)
	if ack["status"] != "already processed" {
		t.Errorf("replay ack = %q, want %q", ack["status"], "already processed")
	}
}

func TestBillingWebhookRejectsBadSignature(t *testing.T) {
	api := setupTestAPI(t)

	body := []byte(`{"event_id":"evt-x","type":"subscription.activated","provider_ref":"prov-x"}`)

	tests := []struct {
		name      string
		signature string
	}{
		{"missing signature", ""},
		{"wrong secret", billing.SignPayload("some-other-secret", body)},
		{"garbage signature", "sha256=not-hex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, api, body, tt.signature)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			env := decodeEnvelope(t, rec)
			if env.Error == nil || env.Error.Code != "AUTHENTICATION_ERROR" {
				t.Errorf("error = %+v, want code AUTHENTICATION_ERROR", env.Error)
			}
		})
	}
}

func TestBillingWebhookRejectsBadPayload(t *testing.T) {
	api := setupTestAPI(t)

	// Valid signature over a body that is not a billing event.
	body := []byte(`{"what": "is this"}`)
	rec := postWebhook(t, api, body, billing.SignPayload(testWebhookSecret, body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (body: %s)",
			rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestStartSubscriptionWhenBillingDisabled(t *testing.T) {
	api := setupTestAPI(t)
	_, cookie := api.registerAs(t, "hopeful", models.RoleReader)

	// The test harness leaves the provider client disabled, so checkout
	// is refused before any subscription row is written.
	rec := api.do(t, http.MethodPost, "/api/v1/me/subscription", models.StartSubscriptionRequest{
		Tier: models.TierSupporter,
	}, cookie)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d (body: %s)",
			rec.Code, http.StatusServiceUnavailable, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("error = %+v, want code SERVICE_UNAVAILABLE", env.Error)
	}
}

func TestListTiersCatalog(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/tiers", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var data struct {
		Tiers []models.TierInfo `json:"tiers"`
	}
	decodeData(t, rec, &data)
	if len(data.Tiers) != 3 {
		t.Fatalf("catalog has %d tiers, want 3", len(data.Tiers))
	}
	if data.Tiers[0].Name != models.TierFree {
		t.Errorf("first tier = %q, want %q", data.Tiers[0].Name, models.TierFree)
	}
}
