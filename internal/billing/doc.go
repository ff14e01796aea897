// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package billing integrates the external payment provider behind
// membership tiers.
//
// The Client wraps the provider's REST API with a sony/gobreaker circuit
// breaker and a client-side rate limiter; StartCheckout and
// CancelAtPeriodEnd are the only two provider calls Paperbound makes.
// All tier state changes flow back through signed webhooks:
// VerifySignature checks the HMAC-SHA256 over the raw body and ParseEvent
// decodes the event, which the API layer then applies idempotently
// through the database store.
//
// When billing is disabled in the config every Client call returns
// ErrDisabled and all users remain on the free tier.
package billing
