// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package authz provides authorization using Casbin RBAC with the
// reader < author < moderator < admin role hierarchy. Objects are
// logical route groups (works, comments, admin, ...), actions are
// read, write, delete.
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/paperbound/paperbound/internal/config"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Actions understood by the policy.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Logical objects the policy covers.
const (
	ObjectProfile       = "profile"
	ObjectLibrary       = "library"
	ObjectBookmarks     = "bookmarks"
	ObjectRatings       = "ratings"
	ObjectComments      = "comments"
	ObjectNotifications = "notifications"
	ObjectSubscriptions = "subscriptions"
	ObjectWorks         = "works"
	ObjectChapters      = "chapters"
	ObjectMedia         = "media"
	ObjectModeration    = "moderation"
	ObjectAdmin         = "admin"
)

// Enforcer wraps the Casbin enforcer with decision caching.
type Enforcer struct {
	cfg      config.CasbinConfig
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEnforcer creates an authorization enforcer. With empty paths the
// embedded model and policy are used.
func NewEnforcer(cfg config.CasbinConfig) (*Enforcer, error) {
	var m model.Model
	var err error

	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		adapter := fileadapter.NewAdapter(cfg.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{
		cfg:      cfg,
		enforcer: enforcer,
	}

	if cfg.CacheEnabled {
		e.cache = newDecisionCache(cfg.CacheTTL)
	}

	return e, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ptype := parts[0]
		rule := parts[1:]

		switch ptype {
		case "p":
			if len(rule) >= 3 {
				if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
					return fmt.Errorf("failed to add policy %v: %w", rule, err)
				}
			}
		case "g":
			if len(rule) >= 2 {
				if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
					return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
				}
			}
		}
	}
	return nil
}

// Enforce checks if the subject can perform the action on the object.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(subject, object, action); ok {
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.cache != nil {
		e.cache.set(subject, object, action, allowed)
	}

	return allowed, nil
}

// EnforceWithRole checks a user's direct grants and their role. The
// default role covers subjects with no role set.
func (e *Enforcer) EnforceWithRole(userID, role, object, action string) (bool, error) {
	if userID != "" {
		if allowed, err := e.Enforce(userID, object, action); err != nil {
			return false, err
		} else if allowed {
			return true, nil
		}
	}

	if role == "" {
		role = e.cfg.DefaultRole
	}
	if role == "" {
		return false, nil
	}

	return e.Enforce(role, object, action)
}

// AddRoleForUser grants a user an extra role beyond their account role.
func (e *Enforcer) AddRoleForUser(userID, role string) (bool, error) {
	added, err := e.enforcer.AddGroupingPolicy(userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to add role: %w", err)
	}
	if e.cache != nil {
		e.cache.invalidateSubject(userID)
	}
	return added, nil
}

// DeleteRoleForUser removes an extra role from a user.
func (e *Enforcer) DeleteRoleForUser(userID, role string) (bool, error) {
	removed, err := e.enforcer.RemoveGroupingPolicy(userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to remove role: %w", err)
	}
	if e.cache != nil {
		e.cache.invalidateSubject(userID)
	}
	return removed, nil
}

// GetRolesForUser returns the extra roles granted to a user.
func (e *Enforcer) GetRolesForUser(userID string) ([]string, error) {
	return e.enforcer.GetRolesForUser(userID)
}

// GetPolicy returns all policy rules.
func (e *Enforcer) GetPolicy() [][]string {
	//nolint:errcheck // GetPolicy only fails if enforcer is nil, which is a programming error
	policies, _ := e.enforcer.GetPolicy()
	return policies
}

// ErrNoAdapter is returned when persistence is requested while running
// on the embedded policy.
var ErrNoAdapter = errors.New("no policy adapter configured; using embedded policy")

// SavePolicy persists the policy to the configured file.
func (e *Enforcer) SavePolicy() error {
	if e.cfg.PolicyPath == "" {
		return ErrNoAdapter
	}
	return e.enforcer.SavePolicy()
}

// LoadPolicy reloads the policy from the configured file.
func (e *Enforcer) LoadPolicy() error {
	if e.cfg.PolicyPath == "" {
		return ErrNoAdapter
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return err
	}
	if e.cache != nil {
		e.cache.clear()
	}
	return nil
}

// Close stops the enforcer and cleans up resources.
func (e *Enforcer) Close() {
	if e.cache != nil {
		e.cache.stop()
	}
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
