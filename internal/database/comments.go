// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// comments.go - Comment Database Operations
//
// Threading is one level deep: a reply's parent must be a root comment on
// the same chapter. Removed comments keep their row so threads keep their
// shape; the body is blanked at read time.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperbound/paperbound/internal/models"
)

// Threading violations CreateComment reports. Callers map these to
// validation failures with errors.Is.
var (
	ErrParentWrongChapter = errors.New("parent comment belongs to a different chapter")
	ErrReplyToReply       = errors.New("replies to replies are not allowed")
)

// CreateComment inserts a comment. When ParentID is set, the parent must
// exist, be a root comment, and belong to the same chapter.
func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	if comment.ParentID != "" {
		var parentChapter string
		var parentParent sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT chapter_id, parent_id FROM comments WHERE id = ?`, comment.ParentID,
		).Scan(&parentChapter, &parentParent)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("parent comment: %w", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read parent comment: %w", err)
		}
		if parentChapter != comment.ChapterID {
			return ErrParentWrongChapter
		}
		if parentParent.Valid {
			return ErrReplyToReply
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, chapter_id, user_id, parent_id, body, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		comment.ID, comment.ChapterID, comment.UserID,
		nullableString(comment.ParentID), comment.Body, comment.Status, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comment insert: %w", err)
	}
	return nil
}

// GetCommentByID retrieves a comment by id. Returns nil when absent.
func (db *DB) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT c.id, c.chapter_id, c.user_id, u.username, c.parent_id, c.body, c.status, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = ?
	`, id)

	comment, err := scanComment(row)
	if err != nil {
		return nil, err
	}
	if comment != nil && comment.Status == models.CommentStatusRemoved {
		comment.Body = ""
	}
	return comment, nil
}

// ListComments returns a page of comments for a chapter in thread order:
// root comments oldest first, each followed by its replies.
func (db *DB) ListComments(ctx context.Context, chapterID string, offset, limit int) ([]models.Comment, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE chapter_id = ?`, chapterID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	// Thread order: sort by the root comment's timestamp, roots before
	// replies, then reply timestamps.
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.chapter_id, c.user_id, u.username, c.parent_id, c.body, c.status, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		LEFT JOIN comments p ON p.id = c.parent_id
		WHERE c.chapter_id = ?
		ORDER BY COALESCE(p.created_at, c.created_at), c.parent_id IS NOT NULL, c.created_at
		LIMIT ? OFFSET ?
	`, chapterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanCommentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		if comment.Status == models.CommentStatusRemoved {
			comment.Body = ""
		}
		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, total, nil
}

// RemoveComment marks a comment removed. The row stays for thread shape.
func (db *DB) RemoveComment(ctx context.Context, commentID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET status = ? WHERE id = ? AND status <> ?`,
		models.CommentStatusRemoved, commentID, models.CommentStatusRemoved)
	if err != nil {
		return fmt.Errorf("failed to remove comment: %w", err)
	}

	return checkRowsAffected(result, "comment")
}

func scanComment(row *sql.Row) (*models.Comment, error) {
	var c models.Comment
	var parentID sql.NullString

	err := row.Scan(&c.ID, &c.ChapterID, &c.UserID, &c.Username, &parentID, &c.Body, &c.Status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	c.ParentID = parentID.String
	return &c, nil
}

func scanCommentRow(rows *sql.Rows) (*models.Comment, error) {
	var c models.Comment
	var parentID sql.NullString

	err := rows.Scan(&c.ID, &c.ChapterID, &c.UserID, &c.Username, &parentID, &c.Body, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	c.ParentID = parentID.String
	return &c, nil
}
