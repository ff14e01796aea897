// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/models"
	"github.com/paperbound/paperbound/internal/validation"
)

// SignatureHeader carries the provider's HMAC over the raw request body.
const SignatureHeader = "X-Billing-Signature"

// signaturePrefix identifies the HMAC algorithm in the signature header.
const signaturePrefix = "sha256="

var (
	// ErrBadSignature is returned when the webhook signature is missing,
	// malformed, or does not match the payload.
	ErrBadSignature = errors.New("invalid webhook signature")

	// ErrBadPayload is returned when the webhook body is not a valid event.
	ErrBadPayload = errors.New("invalid webhook payload")
)

// SignPayload computes the signature header value for a raw payload.
// The provider signs with the shared webhook secret; tests and the
// provider simulator use this to produce valid deliveries.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the HMAC-SHA256 signature over the raw body.
// The comparison is constant-time. Verification must run on the exact
// bytes received, before any JSON decoding.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return fmt.Errorf("%w: no webhook secret configured", ErrBadSignature)
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return fmt.Errorf("%w: missing %q prefix", ErrBadSignature, signaturePrefix)
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return fmt.Errorf("%w: malformed hex digest", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// ParseEvent decodes and validates a webhook body into a billing event.
// Signature verification is the caller's job and must happen first.
func ParseEvent(body []byte) (*models.BillingWebhookEvent, error) {
	var event models.BillingWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadPayload, err)
	}
	if verr := validation.ValidateStruct(&event); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadPayload, verr.Error())
	}
	switch event.Type {
	case models.BillingEventActivated, models.BillingEventRenewed,
		models.BillingEventPastDue, models.BillingEventCanceled:
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrBadPayload, event.Type)
	}
	return &event, nil
}
