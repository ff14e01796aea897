// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// bookmarks.go - Bookmark and Reading Progress Operations
//
// One bookmark per (user, work). The work's bookmark_count is adjusted in
// the same transaction as the bookmark insert or delete.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

// CreateBookmark adds a bookmark. Returns false without error when the
// bookmark already exists (re-bookmarking is a no-op).
func (db *DB) CreateBookmark(ctx context.Context, userID, workID string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return false, err
	}
	defer rollbackQuietly(tx)

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE user_id = ? AND work_id = ?`,
		userID, workID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookmarks (user_id, work_id, notify, created_at, updated_at)
		VALUES (?, ?, true, ?, ?)
	`, userID, workID, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert bookmark: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE works SET bookmark_count = bookmark_count + 1 WHERE id = ?`, workID)
	if err != nil {
		return false, fmt.Errorf("failed to update bookmark count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bookmark insert: %w", err)
	}
	return true, nil
}

// DeleteBookmark removes a bookmark and decrements the work counter.
func (db *DB) DeleteBookmark(ctx context.Context, userID, workID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	result, err := tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND work_id = ?`, userID, workID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if err := checkRowsAffected(result, "bookmark"); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE works SET bookmark_count = bookmark_count - 1 WHERE id = ?`, workID)
	if err != nil {
		return fmt.Errorf("failed to update bookmark count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bookmark delete: %w", err)
	}
	return nil
}

// GetBookmark retrieves a single bookmark. Returns nil when none exists.
func (db *DB) GetBookmark(ctx context.Context, userID, workID string) (*models.Bookmark, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, work_id, last_chapter_id, last_chapter_number, notify, created_at, updated_at
		FROM bookmarks
		WHERE user_id = ? AND work_id = ?
	`, userID, workID)

	return scanBookmark(row)
}

// UpdateProgress records the last read chapter on a bookmark.
func (db *DB) UpdateProgress(ctx context.Context, userID, workID, chapterID string, chapterNumber int) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE bookmarks SET
			last_chapter_id = ?,
			last_chapter_number = ?,
			updated_at = ?
		WHERE user_id = ? AND work_id = ?
	`, chapterID, chapterNumber, time.Now(), userID, workID)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	return checkRowsAffected(result, "bookmark")
}

// UpdateNotify toggles new-chapter notifications on a bookmark.
func (db *DB) UpdateNotify(ctx context.Context, userID, workID string, notify bool) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE bookmarks SET notify = ?, updated_at = ? WHERE user_id = ? AND work_id = ?
	`, notify, time.Now(), userID, workID)
	if err != nil {
		return fmt.Errorf("failed to update notify flag: %w", err)
	}

	return checkRowsAffected(result, "bookmark")
}

// ListLibrary returns a user's bookmarked works, most recently touched
// first, with the count of published chapters past the reading position.
func (db *DB) ListLibrary(ctx context.Context, userID string, offset, limit int) ([]models.LibraryEntry, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}

	query := `
		SELECT
			b.user_id, b.work_id, b.last_chapter_id, b.last_chapter_number,
			b.notify, b.created_at, b.updated_at,
			` + workColumns + `,
			(SELECT COUNT(*) FROM chapters c
				WHERE c.work_id = b.work_id AND c.status = 'published'
				AND c.number > b.last_chapter_number) AS unread
		FROM bookmarks b
		JOIN works w ON w.id = b.work_id
		JOIN users u ON u.id = w.author_id
		WHERE b.user_id = ?
		ORDER BY b.updated_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query library: %w", err)
	}
	defer rows.Close()

	entries := []models.LibraryEntry{}
	for rows.Next() {
		var entry models.LibraryEntry
		var lastChapterID sql.NullString
		var workData workScanData

		targets := []any{
			&entry.Bookmark.UserID, &entry.Bookmark.WorkID, &lastChapterID,
			&entry.Bookmark.LastChapterNumber, &entry.Bookmark.Notify,
			&entry.Bookmark.CreatedAt, &entry.Bookmark.UpdatedAt,
		}
		targets = append(targets, workData.scanTargets()...)
		targets = append(targets, &entry.UnreadChapters)

		if err := rows.Scan(targets...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan library entry: %w", err)
		}

		entry.Bookmark.LastChapterID = lastChapterID.String
		work, err := workData.toWork()
		if err != nil {
			return nil, 0, err
		}
		entry.Work = *work
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating library: %w", err)
	}

	return entries, total, nil
}

// ListNotifySubscribers returns user ids bookmarking a work with notify
// enabled, excluding the author. Used for chapter_published fan-out.
func (db *DB) ListNotifySubscribers(ctx context.Context, workID, excludeUserID string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id FROM bookmarks
		WHERE work_id = ? AND notify = true AND user_id <> ?
	`, workID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanBookmark(row *sql.Row) (*models.Bookmark, error) {
	var b models.Bookmark
	var lastChapterID sql.NullString

	err := row.Scan(&b.UserID, &b.WorkID, &lastChapterID, &b.LastChapterNumber,
		&b.Notify, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookmark: %w", err)
	}

	b.LastChapterID = lastChapterID.String
	return &b, nil
}
