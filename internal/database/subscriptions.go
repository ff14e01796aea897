// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// subscriptions.go - Membership Database Operations
//
// The users.tier column always mirrors the active subscription (free when
// none); tier changes happen in the same transaction as the subscription
// write so the two can never drift.
//
// Billing webhooks are applied idempotently: the event id is recorded in
// billing_events inside the transaction, and a duplicate id short-circuits
// before any state changes.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

const subscriptionColumns = `
	id, user_id, tier, status, provider_ref, current_period_end, created_at, updated_at
`

// CreateSubscription inserts a subscription and mirrors its tier onto the
// user when the subscription is active.
func (db *DB) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, tier, status, provider_ref, current_period_end, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID, sub.UserID, sub.Tier, sub.Status,
		nullableString(sub.ProviderRef), nullableTime(sub.CurrentPeriodEnd),
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	if sub.Status == models.SubscriptionStatusActive {
		if err := mirrorTier(ctx, tx, sub.UserID, sub.Tier); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit subscription insert: %w", err)
	}
	return nil
}

// GetSubscriptionByUserID returns the user's most recent subscription.
// Returns nil when the user never subscribed.
func (db *DB) GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)

	return scanSubscription(row)
}

// GetSubscriptionByProviderRef resolves a billing provider reference.
func (db *DB) GetSubscriptionByProviderRef(ctx context.Context, providerRef string) (*models.Subscription, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE provider_ref = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, providerRef)

	return scanSubscription(row)
}

// ApplyBillingEvent applies a webhook event to the referenced subscription
// and the owning user's tier, recording the event id for idempotency.
// Returns false without error when the event was already processed.
func (db *DB) ApplyBillingEvent(ctx context.Context, event *models.BillingWebhookEvent) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return false, err
	}
	defer rollbackQuietly(tx)

	var seen int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM billing_events WHERE event_id = ?`, event.EventID).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("failed to check billing event: %w", err)
	}
	if seen > 0 {
		return false, nil
	}

	sub, err := getSubscriptionTx(ctx, tx, event.ProviderRef)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, fmt.Errorf("subscription for provider ref %q: %w", event.ProviderRef, ErrNotFound)
	}

	now := time.Now()
	switch event.Type {
	case models.BillingEventActivated, models.BillingEventRenewed:
		tier := sub.Tier
		if event.Tier != "" {
			tier = event.Tier
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE subscriptions SET tier = ?, status = ?, current_period_end = ?, updated_at = ?
			WHERE id = ?
		`, tier, models.SubscriptionStatusActive, nullableTime(event.PeriodEnd), now, sub.ID)
		if err == nil {
			err = mirrorTier(ctx, tx, sub.UserID, tier)
		}

	case models.BillingEventPastDue:
		_, err = tx.ExecContext(ctx, `
			UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?
		`, models.SubscriptionStatusPastDue, now, sub.ID)
		// Past-due keeps the tier while the provider retries payment.

	case models.BillingEventCanceled:
		_, err = tx.ExecContext(ctx, `
			UPDATE subscriptions SET status = ?, current_period_end = ?, updated_at = ?
			WHERE id = ?
		`, models.SubscriptionStatusCanceled, nullableTime(event.PeriodEnd), now, sub.ID)
		if err == nil {
			// A cancellation effective immediately drops the tier now;
			// otherwise the digest sweep drops it at the period end.
			if event.PeriodEnd == nil || !event.PeriodEnd.After(now) {
				err = mirrorTier(ctx, tx, sub.UserID, models.TierFree)
			}
		}

	default:
		return false, fmt.Errorf("unknown billing event type: %s", event.Type)
	}
	if err != nil {
		return false, fmt.Errorf("failed to apply billing event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO billing_events (event_id, type, provider_ref, processed_at)
		VALUES (?, ?, ?, ?)
	`, event.EventID, event.Type, event.ProviderRef, now)
	if err != nil {
		return false, fmt.Errorf("failed to record billing event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit billing event: %w", err)
	}
	return true, nil
}

// ExpireLapsedSubscriptions drops the tier of users whose canceled
// subscription has passed its period end. Returns the number of users
// reverted to free. Called from the periodic scheduler sweep.
func (db *DB) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return 0, err
	}
	defer rollbackQuietly(tx)

	rows, err := tx.QueryContext(ctx, `
		SELECT s.user_id FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.status = ? AND s.current_period_end IS NOT NULL
			AND s.current_period_end <= ? AND u.tier <> ?
	`, models.SubscriptionStatusCanceled, now, models.TierFree)
	if err != nil {
		return 0, fmt.Errorf("failed to query lapsed subscriptions: %w", err)
	}

	userIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			closeQuietly(rows)
			return 0, fmt.Errorf("failed to scan lapsed subscription: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return 0, err
	}
	closeQuietly(rows)

	for _, id := range userIDs {
		if err := mirrorTier(ctx, tx, id, models.TierFree); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tier expiry: %w", err)
	}
	return len(userIDs), nil
}

// TierBreakdown returns the number of users per tier.
func (db *DB) TierBreakdown(ctx context.Context) (map[string]int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT tier, COUNT(*) FROM users GROUP BY tier`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := map[string]int{}
	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tier breakdown: %w", err)
		}
		breakdown[tier] = count
	}
	return breakdown, rows.Err()
}

func mirrorTier(ctx context.Context, tx *sql.Tx, userID, tier string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET tier = ?, updated_at = ? WHERE id = ?`, tier, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to mirror tier onto user: %w", err)
	}
	return nil
}

func getSubscriptionTx(ctx context.Context, tx *sql.Tx, providerRef string) (*models.Subscription, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE provider_ref = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, providerRef)

	return scanSubscription(row)
}

func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	var s models.Subscription
	var providerRef sql.NullString
	var periodEnd sql.NullTime

	err := row.Scan(&s.ID, &s.UserID, &s.Tier, &s.Status, &providerRef, &periodEnd, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	s.ProviderRef = providerRef.String
	s.CurrentPeriodEnd = timePtr(periodEnd)
	return &s, nil
}
