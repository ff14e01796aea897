// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// audit.go - Moderation Audit Log Operations
//
// The audit log is append-only: entries are inserted and listed, never
// updated or deleted.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/models"
)

// CreateAuditEntry appends an entry to the audit log.
func (db *DB) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO audit_log (
			id, timestamp, actor_id, actor_username, action,
			target_type, target_id, old_value, new_value, reason, ip_address
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		entry.ID.String(), entry.Timestamp, entry.ActorID, nullableString(entry.ActorUsername),
		entry.Action, entry.TargetType, entry.TargetID,
		nullableString(entry.OldValue), nullableString(entry.NewValue),
		nullableString(entry.Reason), nullableString(entry.IPAddress),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// ListAuditEntries returns a filtered page of audit entries, newest first.
func (db *DB) ListAuditEntries(ctx context.Context, filter models.AuditListFilter) ([]models.AuditEntry, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	clauses := []string{}
	args := []any{}

	if filter.ActorID != "" {
		clauses = append(clauses, `actor_id = ?`)
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		clauses = append(clauses, `action = ?`)
		args = append(args, filter.Action)
	}
	if filter.TargetType != "" {
		clauses = append(clauses, `target_type = ?`)
		args = append(args, filter.TargetType)
	}

	where := ""
	if len(clauses) > 0 {
		where = ` WHERE ` + strings.Join(clauses, " AND ")
	}

	var total int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	query := `
		SELECT id, timestamp, actor_id, actor_username, action,
			target_type, target_id, old_value, new_value, reason, ip_address
		FROM audit_log` + where + `
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		entry, err := scanAuditRow(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, total, nil
}

func scanAuditRow(rows *sql.Rows) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	var id string
	var actorUsername, oldValue, newValue, reason, ipAddress sql.NullString

	err := rows.Scan(
		&id, &entry.Timestamp, &entry.ActorID, &actorUsername, &entry.Action,
		&entry.TargetType, &entry.TargetID, &oldValue, &newValue, &reason, &ipAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse audit entry id: %w", err)
	}

	entry.ID = parsed
	entry.ActorUsername = actorUsername.String
	entry.OldValue = oldValue.String
	entry.NewValue = newValue.String
	entry.Reason = reason.String
	entry.IPAddress = ipAddress.String
	return &entry, nil
}
