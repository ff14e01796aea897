// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"testing"
	"time"
)

func TestIsValidRole(t *testing.T) {
	t.Parallel()

	for _, role := range ValidRoles {
		if !IsValidRole(role) {
			t.Errorf("expected %q to be valid", role)
		}
	}
	if IsValidRole("superuser") {
		t.Error("expected 'superuser' to be invalid")
	}
	if IsValidRole("") {
		t.Error("expected empty role to be invalid")
	}
}

func TestRoleAtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role     string
		min      string
		expected bool
	}{
		{RoleReader, RoleReader, true},
		{RoleAuthor, RoleReader, true},
		{RoleModerator, RoleAuthor, true},
		{RoleAdmin, RoleModerator, true},
		{RoleReader, RoleAuthor, false},
		{RoleAuthor, RoleModerator, false},
		{RoleModerator, RoleAdmin, false},
		{"unknown", RoleReader, false},
		{RoleAdmin, "unknown", false},
	}

	for _, tt := range tests {
		if got := RoleAtLeast(tt.role, tt.min); got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.min, got, tt.expected)
		}
	}
}

func TestTierAtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier     string
		min      string
		expected bool
	}{
		{TierFree, TierFree, true},
		{TierSupporter, TierFree, true},
		{TierPremium, TierSupporter, true},
		{TierFree, TierSupporter, false},
		{TierSupporter, TierPremium, false},
		{"", TierFree, false},
	}

	for _, tt := range tests {
		if got := TierAtLeast(tt.tier, tt.min); got != tt.expected {
			t.Errorf("TierAtLeast(%q, %q) = %v, want %v", tt.tier, tt.min, got, tt.expected)
		}
	}
}

func TestWorkAverageRating(t *testing.T) {
	t.Parallel()

	w := &Work{}
	if got := w.AverageRating(); got != 0 {
		t.Errorf("unrated work average = %v, want 0", got)
	}

	w.RatingSum = 9
	w.RatingCount = 2
	if got := w.AverageRating(); got != 4.5 {
		t.Errorf("average = %v, want 4.5", got)
	}
}

func TestSubscriptionIsActive(t *testing.T) {
	t.Parallel()

	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		sub      Subscription
		expected bool
	}{
		{"active", Subscription{Status: SubscriptionStatusActive}, true},
		{"canceled within period", Subscription{Status: SubscriptionStatusCanceled, CurrentPeriodEnd: &future}, true},
		{"canceled after period", Subscription{Status: SubscriptionStatusCanceled, CurrentPeriodEnd: &past}, false},
		{"canceled no period end", Subscription{Status: SubscriptionStatusCanceled}, false},
		{"past due", Subscription{Status: SubscriptionStatusPastDue}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.sub.IsActive(); got != tt.expected {
				t.Errorf("IsActive() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTierCatalogOrder(t *testing.T) {
	t.Parallel()

	catalog := TierCatalog()
	if len(catalog) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(catalog))
	}
	if catalog[0].Name != TierFree || catalog[0].PriceCents != 0 {
		t.Errorf("expected free tier first, got %+v", catalog[0])
	}
	for i := 1; i < len(catalog); i++ {
		if catalog[i].PriceCents <= catalog[i-1].PriceCents {
			t.Errorf("catalog prices not strictly increasing at %d", i)
		}
	}
}

func TestUserPublicProfileOmitsSecrets(t *testing.T) {
	t.Parallel()

	u := &User{
		ID:           "u1",
		Username:     "reader42",
		Email:        "reader@example.com",
		PasswordHash: "$2a$12$hash",
		Role:         RoleReader,
	}

	p := u.Public()
	if p.Username != "reader42" {
		t.Errorf("expected username carried, got %q", p.Username)
	}
	// PublicProfile has no email or password hash fields by construction;
	// assert the profile round-trips the allowed fields only.
	if p.ID != u.ID || p.Role != u.Role {
		t.Error("expected id and role carried to public profile")
	}
}

func TestNotificationIsRead(t *testing.T) {
	t.Parallel()

	n := &Notification{}
	if n.IsRead() {
		t.Error("expected unread")
	}
	now := time.Now()
	n.ReadAt = &now
	if !n.IsRead() {
		t.Error("expected read")
	}
}

func TestNewPaginationInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		offset  int
		limit   int
		total   int
		hasMore bool
	}{
		{"first page of many", 0, 20, 100, true},
		{"last page exact", 80, 20, 100, false},
		{"past end", 100, 20, 100, false},
		{"empty", 0, 20, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPaginationInfo(tt.offset, tt.limit, tt.total)
			if p.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", p.HasMore, tt.hasMore)
			}
		})
	}
}

func TestNewAuditEntry(t *testing.T) {
	t.Parallel()

	e := NewAuditEntry("admin-1", "root", AuditActionTakedown, "work", "w1")
	if e.ID.String() == "" {
		t.Error("expected generated id")
	}
	if e.Timestamp.IsZero() {
		t.Error("expected timestamp set")
	}
	if e.Action != AuditActionTakedown || e.TargetType != "work" {
		t.Errorf("unexpected entry: %+v", e)
	}
}
