// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"
)

// Subscription status constants.
const (
	// SubscriptionStatusActive grants the subscription's tier.
	SubscriptionStatusActive = "active"

	// SubscriptionStatusCanceled keeps the tier until the period end.
	SubscriptionStatusCanceled = "canceled"

	// SubscriptionStatusPastDue marks a failed renewal awaiting retry.
	SubscriptionStatusPastDue = "past_due"

	// SubscriptionStatusPending marks a checkout that the provider has
	// not yet confirmed. Grants nothing until the activation webhook.
	SubscriptionStatusPending = "pending"
)

// Subscription represents a user's paid membership.
// The user's tier column always mirrors the active subscription
// (free when none); billing webhooks keep the two in sync.
type Subscription struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Tier             string     `json:"tier"`
	Status           string     `json:"status"`
	ProviderRef      string     `json:"provider_ref,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsActive reports whether the subscription currently grants its tier.
func (s *Subscription) IsActive() bool {
	if s.Status == SubscriptionStatusActive {
		return true
	}
	// Canceled subscriptions keep their tier until the period end
	if s.Status == SubscriptionStatusCanceled && s.CurrentPeriodEnd != nil {
		return time.Now().Before(*s.CurrentPeriodEnd)
	}
	return false
}

// TierInfo describes one membership level in the public catalog.
type TierInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	PriceCents  int    `json:"price_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	EarlyAccess bool   `json:"early_access"`
}

// TierCatalog returns the public membership catalog.
func TierCatalog() []TierInfo {
	return []TierInfo{
		{
			Name:        TierFree,
			DisplayName: "Free",
			PriceCents:  0,
			Currency:    "USD",
			Description: "Read published works, bookmark, rate, and comment.",
		},
		{
			Name:        TierSupporter,
			DisplayName: "Supporter",
			PriceCents:  499,
			Currency:    "USD",
			Description: "Early access to supporter-gated chapters.",
			EarlyAccess: true,
		},
		{
			Name:        TierPremium,
			DisplayName: "Premium",
			PriceCents:  999,
			Currency:    "USD",
			Description: "Early access to all gated chapters.",
			EarlyAccess: true,
		},
	}
}

// StartSubscriptionRequest begins checkout for a paid tier.
type StartSubscriptionRequest struct {
	Tier string `json:"tier" validate:"required,oneof=supporter premium"`
}

// StartSubscriptionResponse carries the provider checkout URL.
type StartSubscriptionResponse struct {
	Subscription *Subscription `json:"subscription"`
	CheckoutURL  string        `json:"checkout_url"`
}

// Billing webhook event types.
const (
	BillingEventActivated = "subscription.activated"
	BillingEventRenewed   = "subscription.renewed"
	BillingEventPastDue   = "subscription.past_due"
	BillingEventCanceled  = "subscription.canceled"
)

// BillingWebhookEvent is the payload delivered by the payment provider.
// Events are processed idempotently by EventID.
type BillingWebhookEvent struct {
	EventID     string     `json:"event_id" validate:"required"`
	Type        string     `json:"type" validate:"required"`
	ProviderRef string     `json:"provider_ref" validate:"required"`
	Tier        string     `json:"tier,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
