// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/billing"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/metrics"
	"github.com/paperbound/paperbound/internal/models"
)

// maxWebhookBodySize bounds the raw webhook payload read into memory.
const maxWebhookBodySize = 256 * 1024 // 256KB

// ListTiers handles GET /api/v1/tiers. Public membership catalog.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"tiers": models.TierCatalog(),
	}, start)
}

// GetSubscription handles GET /api/v1/me/subscription.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	sub, err := h.db.GetSubscriptionByUserID(r.Context(), subject.UserID)
	if err != nil {
		respondStoreError(w, err, "subscription")
		return
	}
	if sub == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No subscription", nil)
		return
	}
	respondSuccess(w, http.StatusOK, sub, start)
}

// StartSubscription handles POST /api/v1/me/subscription. Creates a
// pending subscription and returns the provider checkout URL; the tier
// is granted when the activation webhook arrives.
func (h *Handler) StartSubscription(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	var req models.StartSubscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	existing, err := h.db.GetSubscriptionByUserID(r.Context(), subject.UserID)
	if err != nil {
		respondStoreError(w, err, "subscription")
		return
	}
	if existing != nil && existing.IsActive() {
		respondError(w, http.StatusConflict, "CONFLICT",
			"You already have an active subscription", nil)
		return
	}

	session, err := h.billing.StartCheckout(r.Context(), subject.UserID, req.Tier)
	if err != nil {
		h.respondBillingError(w, err)
		return
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		ID:          uuid.New().String(),
		UserID:      subject.UserID,
		Tier:        req.Tier,
		Status:      models.SubscriptionStatusPending,
		ProviderRef: session.ProviderRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.db.CreateSubscription(r.Context(), sub); err != nil {
		respondStoreError(w, err, "subscription")
		return
	}

	logging.Info().
		Str("user_id", subject.UserID).
		Str("tier", req.Tier).
		Msg("Subscription checkout started")

	respondSuccess(w, http.StatusCreated, models.StartSubscriptionResponse{
		Subscription: sub,
		CheckoutURL:  session.CheckoutURL,
	}, start)
}

// CancelSubscription handles DELETE /api/v1/me/subscription. Flags the
// subscription to lapse with the provider; the tier survives until the
// current period ends.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())

	sub, err := h.db.GetSubscriptionByUserID(r.Context(), subject.UserID)
	if err != nil {
		respondStoreError(w, err, "subscription")
		return
	}
	if sub == nil || !sub.IsActive() {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No active subscription", nil)
		return
	}

	result, err := h.billing.CancelAtPeriodEnd(r.Context(), sub.ProviderRef)
	if err != nil {
		h.respondBillingError(w, err)
		return
	}

	// The provider confirms synchronously; its cancellation webhook will
	// follow and is applied idempotently on top of this.
	event := &models.BillingWebhookEvent{
		EventID:     "cancel-" + uuid.New().String(),
		Type:        models.BillingEventCanceled,
		ProviderRef: sub.ProviderRef,
		PeriodEnd:   result.PeriodEnd,
		OccurredAt:  time.Now().UTC(),
	}
	if _, err := h.db.ApplyBillingEvent(r.Context(), event); err != nil {
		respondStoreError(w, err, "subscription")
		return
	}

	sub, err = h.db.GetSubscriptionByUserID(r.Context(), subject.UserID)
	if err != nil {
		respondStoreError(w, err, "subscription")
		return
	}
	respondSuccess(w, http.StatusOK, sub, start)
}

// BillingWebhook handles POST /api/v1/webhooks/billing. Unauthenticated
// but HMAC-signed; rejected signatures never reach the parser.
func (h *Handler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		metrics.RecordBillingWebhook("unknown", "read_error")
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read body", err)
		return
	}

	signature := r.Header.Get(billing.SignatureHeader)
	if err := billing.VerifySignature(h.cfg.Billing.WebhookSecret, body, signature); err != nil {
		metrics.RecordBillingWebhook("unknown", "bad_signature")
		logging.Warn().Err(err).Str("ip", clientInfo(r).IP).Msg("Billing webhook signature rejected")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid signature", nil)
		return
	}

	event, err := billing.ParseEvent(body)
	if err != nil {
		metrics.RecordBillingWebhook("unknown", "bad_payload")
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payload", err)
		return
	}

	applied, err := h.db.ApplyBillingEvent(r.Context(), event)
	if err != nil {
		metrics.RecordBillingWebhook(event.Type, "error")
		respondStoreError(w, err, "billing event")
		return
	}
	if !applied {
		// Duplicate event id; acknowledge so the provider stops retrying.
		metrics.RecordBillingWebhook(event.Type, "duplicate")
		respondSuccess(w, http.StatusOK, map[string]string{"status": "already processed"}, start)
		return
	}
	metrics.RecordBillingWebhook(event.Type, "applied")

	sub, err := h.db.GetSubscriptionByProviderRef(r.Context(), event.ProviderRef)
	if err == nil && sub != nil && h.publisher != nil {
		perr := h.publisher.SubscriptionChanged(&events.SubscriptionChanged{
			EventID:    events.NewEventID(),
			UserID:     sub.UserID,
			Tier:       sub.Tier,
			Status:     sub.Status,
			OccurredAt: time.Now().UTC(),
		})
		if perr != nil {
			logging.Error().Err(perr).Str("user_id", sub.UserID).Msg("Failed to publish subscription event")
		}
	}

	respondSuccess(w, http.StatusOK, map[string]string{"status": "processed"}, start)
}

func (h *Handler) respondBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrDisabled):
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"Paid memberships are not available on this instance", nil)
	case errors.Is(err, billing.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"Payment provider is temporarily unavailable", err)
	default:
		respondError(w, http.StatusBadGateway, "BILLING_ERROR",
			"Payment provider request failed", err)
	}
}
