// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package billing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/metrics"
)

// maxErrorBodySize limits how much of a provider error response is read
// for diagnostics, preventing unbounded allocation on large error bodies.
const maxErrorBodySize = 64 * 1024 // 64KB

var (
	// ErrDisabled is returned when billing is not enabled in the config.
	// Callers translate it into a 503 so free-tier deployments degrade cleanly.
	ErrDisabled = errors.New("billing is disabled")

	// ErrUnavailable is returned when the circuit breaker rejects a call
	// because the payment provider is failing or recovering.
	ErrUnavailable = errors.New("payment provider unavailable")
)

// CheckoutSession is the provider's answer to a checkout request. The
// provider ref identifies the pending subscription until the activation
// webhook arrives; the URL is where the user completes payment.
type CheckoutSession struct {
	ProviderRef string `json:"provider_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// CancelResult reports the provider-side outcome of a cancellation.
// PeriodEnd is when the paid tier actually lapses.
type CancelResult struct {
	Status    string     `json:"status"`
	PeriodEnd *time.Time `json:"period_end,omitempty"`
}

// Client talks to the payment provider's REST API with circuit breaker
// protection and client-side rate limiting.
//
// Circuit breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. This is intentional for
// production resilience: the timing governs recovery, not data integrity.
// Tests exercise the HTTP layer through a fake provider rather than
// manipulating breaker clocks.
//
// Thread Safety: Safe for concurrent use. Each request creates its own
// HTTP request; the limiter and breaker are internally synchronized.
type Client struct {
	cfg     config.BillingConfig
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[interface{}]
	name    string
}

// NewClient creates a payment provider client from the billing config.
// The client is usable even when billing is disabled; every call then
// returns ErrDisabled so handlers need no separate nil check.
func NewClient(cfg config.BillingConfig) *Client {
	cbName := "billing-provider"

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit to payment provider")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] Payment provider state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cb:      cb,
		name:    cbName,
	}
}

// Enabled reports whether billing is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// StartCheckout creates a checkout session for the given user and tier.
// The returned provider ref is stored on the pending subscription; the
// subscription only becomes active when the provider's webhook confirms
// payment.
func (c *Client) StartCheckout(ctx context.Context, userID, tier string) (*CheckoutSession, error) {
	payload := map[string]string{
		"user_id": userID,
		"tier":    tier,
	}
	return castResult[CheckoutSession](c.execute(func() (interface{}, error) {
		var session CheckoutSession
		if err := c.post(ctx, "/v1/checkout/sessions", payload, &session); err != nil {
			return nil, err
		}
		return &session, nil
	}))
}

// CancelAtPeriodEnd asks the provider to stop renewing the subscription.
// The paid tier stays in effect until the period end the provider reports.
func (c *Client) CancelAtPeriodEnd(ctx context.Context, providerRef string) (*CancelResult, error) {
	path := fmt.Sprintf("/v1/subscriptions/%s/cancel", providerRef)
	return castResult[CancelResult](c.execute(func() (interface{}, error) {
		var result CancelResult
		if err := c.post(ctx, path, nil, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}))
}

// execute wraps a provider API call with circuit breaker protection.
func (c *Client) execute(fn func() (interface{}, error)) (interface{}, error) {
	if !c.cfg.Enabled {
		return nil, ErrDisabled
	}

	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Payment provider request rejected")
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return result, nil
}

// post sends a JSON request to the provider and decodes the JSON response.
// The limiter wait also honors context cancellation.
func (c *Client) post(ctx context.Context, path string, payload, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body := io.Reader(http.NoBody)
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProviderURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(errBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// castResult safely type-casts the circuit breaker result with error checking.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("billing client: unexpected result type %T", result)
	}
	return typed, nil
}

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
