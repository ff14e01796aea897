// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

/*
rbac.go - Role and Tier Models

Role Hierarchy (enforced via Casbin policy in internal/authz):
  - reader: Default role, can read published content, bookmark, rate, comment
  - author: Can create and publish works and chapters (inherits reader)
  - moderator: Can moderate comments and take down content (inherits author)
  - admin: Full access including user management (inherits moderator)

Tier Ordering (membership levels, gate early-access chapters):
  - free < supporter < premium
*/

package models

// Role constants define the standard roles in the system.
// These align with the Casbin policy definitions in internal/authz.
const (
	// RoleReader is the default role with read and social access.
	RoleReader = "reader"

	// RoleAuthor can create and publish works, inherits reader permissions.
	RoleAuthor = "author"

	// RoleModerator can moderate content, inherits author permissions.
	RoleModerator = "moderator"

	// RoleAdmin has full access including user management.
	RoleAdmin = "admin"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleReader, RoleAuthor, RoleModerator, RoleAdmin}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// roleRank orders roles for at-least comparisons.
var roleRank = map[string]int{
	RoleReader:    0,
	RoleAuthor:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// RoleAtLeast reports whether role grants at least the access of min.
// Unknown roles rank below reader.
func RoleAtLeast(role, min string) bool {
	r, ok := roleRank[role]
	if !ok {
		return false
	}
	m, ok := roleRank[min]
	if !ok {
		return false
	}
	return r >= m
}

// Tier constants define the membership levels.
const (
	// TierFree is the default membership level.
	TierFree = "free"

	// TierSupporter unlocks supporter-gated chapters.
	TierSupporter = "supporter"

	// TierPremium unlocks all gated content.
	TierPremium = "premium"
)

// ValidTiers contains all valid tier names for validation.
var ValidTiers = []string{TierFree, TierSupporter, TierPremium}

// IsValidTier checks if a tier name is valid.
func IsValidTier(tier string) bool {
	for _, t := range ValidTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// tierRank orders tiers for gated-content comparisons.
var tierRank = map[string]int{
	TierFree:      0,
	TierSupporter: 1,
	TierPremium:   2,
}

// TierAtLeast reports whether tier meets or exceeds min.
// Unknown tiers rank below free.
func TierAtLeast(tier, min string) bool {
	t, ok := tierRank[tier]
	if !ok {
		return false
	}
	m, ok := tierRank[min]
	if !ok {
		return false
	}
	return t >= m
}
