// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// stats.go - Admin Dashboard Queries
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

// GetAdminStats assembles the admin dashboard summary.
func (db *DB) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	stats := &models.AdminStats{GeneratedAt: time.Now()}

	totals, err := db.getTotals(ctx)
	if err != nil {
		return nil, err
	}
	stats.Totals = *totals

	signups, err := db.getSignupStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Signups = *signups

	topWorks, _, err := db.ListWorks(ctx, models.WorkListFilter{
		Status: models.WorkStatusPublished,
		Sort:   models.WorkSortBookmarks,
		Limit:  10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query top works: %w", err)
	}
	stats.TopWorks = topWorks

	recent, _, err := db.ListAuditEntries(ctx, models.AuditListFilter{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent actions: %w", err)
	}
	stats.RecentActions = recent

	breakdown, err := db.TierBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	stats.TierBreakdown = breakdown

	return stats, nil
}

func (db *DB) getTotals(ctx context.Context) (*models.AdminTotals, error) {
	var totals models.AdminTotals

	counts := []struct {
		table string
		dest  *int64
	}{
		{"users", &totals.Users},
		{"works", &totals.Works},
		{"chapters", &totals.Chapters},
		{"bookmarks", &totals.Bookmarks},
		{"ratings", &totals.Ratings},
		{"comments", &totals.Comments},
	}

	for _, c := range counts {
		// table names are the fixed set above, never user input
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)
		if err := db.conn.QueryRowContext(ctx, query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	return &totals, nil
}

func (db *DB) getSignupStats(ctx context.Context) (*models.SignupStats, error) {
	var signups models.SignupStats
	now := time.Now()

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= ?`, now.AddDate(0, 0, -7),
	).Scan(&signups.Last7Days)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent signups: %w", err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= ?`, now.AddDate(0, 0, -30),
	).Scan(&signups.Last30Days)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent signups: %w", err)
	}

	return &signups, nil
}
