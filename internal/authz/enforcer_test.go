// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package authz

import (
	"testing"
	"time"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/models"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()

	enforcer, err := NewEnforcer(config.CasbinConfig{
		DefaultRole:  models.RoleReader,
		CacheEnabled: true,
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)
	return enforcer
}

func TestEmbeddedPolicyHierarchy(t *testing.T) {
	enforcer := newTestEnforcer(t)

	tests := []struct {
		name    string
		role    string
		object  string
		action  string
		allowed bool
	}{
		{name: "reader bookmarks", role: models.RoleReader, object: ObjectBookmarks, action: ActionWrite, allowed: true},
		{name: "reader cannot publish", role: models.RoleReader, object: ObjectWorks, action: ActionWrite, allowed: false},
		{name: "reader cannot moderate", role: models.RoleReader, object: ObjectModeration, action: ActionWrite, allowed: false},
		{name: "author publishes", role: models.RoleAuthor, object: ObjectWorks, action: ActionWrite, allowed: true},
		{name: "author inherits reader", role: models.RoleAuthor, object: ObjectRatings, action: ActionWrite, allowed: true},
		{name: "author cannot remove comments", role: models.RoleAuthor, object: ObjectComments, action: ActionDelete, allowed: false},
		{name: "moderator removes comments", role: models.RoleModerator, object: ObjectComments, action: ActionDelete, allowed: true},
		{name: "moderator inherits author", role: models.RoleModerator, object: ObjectChapters, action: ActionWrite, allowed: true},
		{name: "moderator cannot reach admin", role: models.RoleModerator, object: ObjectAdmin, action: ActionRead, allowed: false},
		{name: "admin reaches admin", role: models.RoleAdmin, object: ObjectAdmin, action: ActionWrite, allowed: true},
		{name: "admin inherits everything", role: models.RoleAdmin, object: ObjectBookmarks, action: ActionWrite, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := enforcer.Enforce(tt.role, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if allowed != tt.allowed {
				t.Errorf("Enforce(%s, %s, %s) = %v, want %v",
					tt.role, tt.object, tt.action, allowed, tt.allowed)
			}
		})
	}
}

func TestEnforceWithRole(t *testing.T) {
	enforcer := newTestEnforcer(t)

	// Role carries the decision for a plain user.
	allowed, err := enforcer.EnforceWithRole("user-1", models.RoleAuthor, ObjectWorks, ActionWrite)
	if err != nil {
		t.Fatalf("EnforceWithRole() error = %v", err)
	}
	if !allowed {
		t.Error("author denied works write")
	}

	// Empty role falls back to the default role.
	allowed, err = enforcer.EnforceWithRole("user-1", "", ObjectBookmarks, ActionWrite)
	if err != nil {
		t.Fatalf("EnforceWithRole() error = %v", err)
	}
	if !allowed {
		t.Error("default role denied bookmarks write")
	}

	allowed, err = enforcer.EnforceWithRole("user-1", "", ObjectWorks, ActionWrite)
	if err != nil {
		t.Fatalf("EnforceWithRole() error = %v", err)
	}
	if allowed {
		t.Error("default role allowed works write")
	}
}

func TestUserSpecificGrant(t *testing.T) {
	enforcer := newTestEnforcer(t)

	// A reader granted the moderator role directly.
	added, err := enforcer.AddRoleForUser("user-1", models.RoleModerator)
	if err != nil {
		t.Fatalf("AddRoleForUser() error = %v", err)
	}
	if !added {
		t.Fatal("AddRoleForUser() = false, want true")
	}

	allowed, err := enforcer.EnforceWithRole("user-1", models.RoleReader, ObjectModeration, ActionWrite)
	if err != nil {
		t.Fatalf("EnforceWithRole() error = %v", err)
	}
	if !allowed {
		t.Error("granted moderator denied moderation write")
	}

	// Revoking the grant restores the role-only decision.
	if _, err := enforcer.DeleteRoleForUser("user-1", models.RoleModerator); err != nil {
		t.Fatalf("DeleteRoleForUser() error = %v", err)
	}

	allowed, err = enforcer.EnforceWithRole("user-1", models.RoleReader, ObjectModeration, ActionWrite)
	if err != nil {
		t.Fatalf("EnforceWithRole() error = %v", err)
	}
	if allowed {
		t.Error("revoked grant still allows moderation write")
	}
}

func TestSavePolicyWithoutAdapter(t *testing.T) {
	enforcer := newTestEnforcer(t)

	if err := enforcer.SavePolicy(); err != ErrNoAdapter {
		t.Errorf("SavePolicy() error = %v, want ErrNoAdapter", err)
	}
	if err := enforcer.LoadPolicy(); err != ErrNoAdapter {
		t.Errorf("LoadPolicy() error = %v, want ErrNoAdapter", err)
	}
}

func TestDecisionCache(t *testing.T) {
	cache := newDecisionCache(time.Minute)
	defer cache.stop()

	if _, ok := cache.get("reader", ObjectWorks, ActionRead); ok {
		t.Error("empty cache returned a decision")
	}

	cache.set("reader", ObjectWorks, ActionRead, true)
	allowed, ok := cache.get("reader", ObjectWorks, ActionRead)
	if !ok || !allowed {
		t.Errorf("get() = (%v, %v), want (true, true)", allowed, ok)
	}

	cache.invalidateSubject("reader")
	if _, ok := cache.get("reader", ObjectWorks, ActionRead); ok {
		t.Error("invalidated decision still cached")
	}
}
