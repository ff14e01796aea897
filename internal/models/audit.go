// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action constants for the append-only moderation/admin log.
const (
	// AuditActionRoleChange records an admin changing a user's role.
	AuditActionRoleChange = "role_change"

	// AuditActionStatusChange records a suspension or reactivation.
	AuditActionStatusChange = "status_change"

	// AuditActionTakedown records a work or chapter takedown.
	AuditActionTakedown = "takedown"

	// AuditActionCommentRemoved records a moderator removing a comment.
	AuditActionCommentRemoved = "comment_removed"
)

// AuditEntry records a moderation or administrative action.
// Entries are immutable once created.
type AuditEntry struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actor_id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	Action        string    `json:"action"`
	TargetType    string    `json:"target_type"` // user, work, chapter, comment
	TargetID      string    `json:"target_id"`
	OldValue      string    `json:"old_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	IPAddress     string    `json:"ip_address,omitempty"`
}

// NewAuditEntry creates an AuditEntry with id and timestamp populated.
func NewAuditEntry(actorID, actorUsername, action, targetType, targetID string) *AuditEntry {
	return &AuditEntry{
		ID:            uuid.New(),
		Timestamp:     time.Now(),
		ActorID:       actorID,
		ActorUsername: actorUsername,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
	}
}

// AuditListFilter holds filters for audit log listings.
type AuditListFilter struct {
	ActorID    string
	Action     string
	TargetType string
	Offset     int
	Limit      int
}

// AuditListResponse wraps a page of audit entries.
type AuditListResponse struct {
	Entries    []AuditEntry   `json:"entries"`
	Pagination PaginationInfo `json:"pagination"`
}

// TakedownRequest represents a moderator/admin content takedown.
type TakedownRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}
