// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// notifications.go - Notification Inbox Operations
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

// CreateNotification inserts a notification into a user's inbox.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, payload, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.UserID, n.Type, nullableString(n.Payload),
		nullableTime(n.ReadAt), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CreateNotifications inserts a batch of notifications in one transaction.
// Used for chapter_published fan-out to bookmark subscribers.
func (db *DB) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications (id, user_id, type, payload, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare notification insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range notifications {
		n := &notifications[i]
		_, err := stmt.ExecContext(ctx,
			n.ID, n.UserID, n.Type, nullableString(n.Payload),
			nullableTime(n.ReadAt), n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notification batch: %w", err)
	}
	return nil
}

// ListNotifications returns a page of a user's notifications, newest first,
// plus the total and unread counts.
func (db *DB) ListNotifications(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]models.Notification, int, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var unread int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL`, userID).Scan(&unread)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	where := `WHERE user_id = ?`
	if unreadOnly {
		where += ` AND read_at IS NULL`
	}

	var total int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications `+where, userID).Scan(&total)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, type, payload, read_at, created_at
		FROM notifications `+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var payload sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &payload, &readAt, &n.CreatedAt); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Payload = payload.String
		n.ReadAt = timePtr(readAt)
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, total, unread, nil
}

// MarkNotificationsRead marks the given notifications read. An empty id
// list marks the whole inbox. Returns the number of rows updated.
func (db *DB) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`
	args := []any{time.Now(), userID}

	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
		query += ` AND id IN (` + placeholders + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// DeleteNotification removes a notification from a user's inbox.
func (db *DB) DeleteNotification(ctx context.Context, userID, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	return checkRowsAffected(result, "notification")
}
