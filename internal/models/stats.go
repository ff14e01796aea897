// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"
)

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	Totals        AdminTotals    `json:"totals"`
	Signups       SignupStats    `json:"signups"`
	TopWorks      []Work         `json:"top_works"`
	RecentActions []AuditEntry   `json:"recent_actions"`
	TierBreakdown map[string]int `json:"tier_breakdown"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// AdminTotals holds whole-table counts for the dashboard.
type AdminTotals struct {
	Users     int64 `json:"users"`
	Works     int64 `json:"works"`
	Chapters  int64 `json:"chapters"`
	Bookmarks int64 `json:"bookmarks"`
	Ratings   int64 `json:"ratings"`
	Comments  int64 `json:"comments"`
}

// SignupStats holds recent registration counts.
type SignupStats struct {
	Last7Days  int64 `json:"last_7_days"`
	Last30Days int64 `json:"last_30_days"`
}
