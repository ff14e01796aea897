// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// chapters.go - Chapter Database Operations
//
// Chapter numbers are assigned inside the insert transaction (max + 1 per
// work) so concurrent creates cannot collide. Work-level counters
// (chapter_count, word_count) are adjusted in the same transaction as the
// chapter write that changes them.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

const chapterColumns = `
	id, work_id, number, title, body, pages, status, min_tier,
	word_count, published_at, scheduled_for, created_at, updated_at
`

// CreateChapter inserts a draft chapter, assigning the next number in the
// work. The assigned number is written back to chapter.Number.
func (db *DB) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	pagesJSON, err := marshalStringList(chapter.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM chapters WHERE work_id = ?`,
		chapter.WorkID,
	).Scan(&chapter.Number)
	if err != nil {
		return fmt.Errorf("failed to assign chapter number: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chapters (
			id, work_id, number, title, body, pages, status, min_tier,
			word_count, published_at, scheduled_for, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		chapter.ID, chapter.WorkID, chapter.Number, chapter.Title,
		nullableString(chapter.Body), pagesJSON, chapter.Status, chapter.MinTier,
		chapter.WordCount, nullableTime(chapter.PublishedAt), nullableTime(chapter.ScheduledFor),
		chapter.CreatedAt, chapter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chapter: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE works SET chapter_count = chapter_count + 1, word_count = word_count + ? WHERE id = ?`,
		chapter.WordCount, chapter.WorkID,
	)
	if err != nil {
		return fmt.Errorf("failed to update work counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chapter insert: %w", err)
	}
	return nil
}

// GetChapterByID retrieves a chapter by id. Returns nil when no chapter matches.
func (db *DB) GetChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)
	return scanChapter(row)
}

// GetChapterByNumber retrieves a chapter by work and number.
func (db *DB) GetChapterByNumber(ctx context.Context, workID string, number int) (*models.Chapter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE work_id = ? AND number = ?`, workID, number)
	return scanChapter(row)
}

// ListChapters returns chapter summaries for a work in reading order.
// When publishedOnly is set, drafts and scheduled chapters are excluded.
func (db *DB) ListChapters(ctx context.Context, workID string, publishedOnly bool) ([]models.ChapterSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, work_id, number, title, status, min_tier, word_count, published_at
		FROM chapters
		WHERE work_id = ?
	`
	if publishedOnly {
		query += ` AND status = 'published'`
	}
	query += ` ORDER BY number`

	rows, err := db.conn.QueryContext(ctx, query, workID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	chapters := []models.ChapterSummary{}
	for rows.Next() {
		var c models.ChapterSummary
		var publishedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.WorkID, &c.Number, &c.Title, &c.Status, &c.MinTier, &c.WordCount, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chapter summary: %w", err)
		}
		c.PublishedAt = timePtr(publishedAt)
		chapters = append(chapters, c)
	}

	return chapters, rows.Err()
}

// UpdateChapter updates a chapter's content and adjusts the work's word
// count by the delta against the stored value.
func (db *DB) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	pagesJSON, err := marshalStringList(chapter.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	var oldWordCount int64
	err = tx.QueryRowContext(ctx,
		`SELECT word_count FROM chapters WHERE id = ?`, chapter.ID,
	).Scan(&oldWordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("chapter: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read chapter word count: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chapters SET
			title = ?,
			body = ?,
			pages = ?,
			min_tier = ?,
			word_count = ?,
			updated_at = ?
		WHERE id = ?
	`,
		chapter.Title, nullableString(chapter.Body), pagesJSON,
		chapter.MinTier, chapter.WordCount, time.Now(), chapter.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}

	if delta := chapter.WordCount - oldWordCount; delta != 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE works SET word_count = word_count + ? WHERE id = ?`,
			delta, chapter.WorkID,
		)
		if err != nil {
			return fmt.Errorf("failed to adjust work word count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chapter update: %w", err)
	}
	return nil
}

// PublishChapter marks a chapter published (or scheduled when scheduledFor
// is set) and bumps the work's updated_at so it surfaces in browse listings.
func (db *DB) PublishChapter(ctx context.Context, chapterID string, scheduledFor *time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	status := models.ChapterStatusPublished
	var publishedAt sql.NullTime
	now := time.Now()
	if scheduledFor != nil && scheduledFor.After(now) {
		status = models.ChapterStatusScheduled
	} else {
		publishedAt = sql.NullTime{Time: now, Valid: true}
		scheduledFor = nil
	}

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	result, err := tx.ExecContext(ctx, `
		UPDATE chapters SET
			status = ?,
			published_at = ?,
			scheduled_for = ?,
			updated_at = ?
		WHERE id = ?
	`, status, publishedAt, nullableTime(scheduledFor), now, chapterID)
	if err != nil {
		return fmt.Errorf("failed to publish chapter: %w", err)
	}
	if err := checkRowsAffected(result, "chapter"); err != nil {
		return err
	}

	if status == models.ChapterStatusPublished {
		_, err = tx.ExecContext(ctx, `
			UPDATE works SET updated_at = ?
			WHERE id = (SELECT work_id FROM chapters WHERE id = ?)
		`, now, chapterID)
		if err != nil {
			return fmt.Errorf("failed to touch work: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chapter publish: %w", err)
	}
	return nil
}

// DeleteChapter removes a chapter, its comments, and its contribution to
// the work counters. Later chapters keep their numbers.
// UnpublishChapter returns a chapter to draft, clearing any publish or
// schedule timestamps. Used for moderation takedowns.
func (db *DB) UnpublishChapter(ctx context.Context, chapterID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE chapters SET
			status = ?,
			published_at = NULL,
			scheduled_for = NULL,
			updated_at = ?
		WHERE id = ?
	`, models.ChapterStatusDraft, time.Now(), chapterID)
	if err != nil {
		return fmt.Errorf("failed to unpublish chapter: %w", err)
	}

	return checkRowsAffected(result, "chapter")
}

func (db *DB) DeleteChapter(ctx context.Context, chapterID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	var workID string
	var wordCount int64
	err = tx.QueryRowContext(ctx,
		`SELECT work_id, word_count FROM chapters WHERE id = ?`, chapterID,
	).Scan(&workID, &wordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("chapter: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read chapter: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE chapter_id = ?`, chapterID); err != nil {
		return fmt.Errorf("failed to delete chapter comments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, chapterID); err != nil {
		return fmt.Errorf("failed to delete chapter: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE works SET chapter_count = chapter_count - 1, word_count = word_count - ? WHERE id = ?`,
		wordCount, workID,
	)
	if err != nil {
		return fmt.Errorf("failed to update work counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chapter delete: %w", err)
	}
	return nil
}

// ListDueScheduledChapters returns scheduled chapters whose publish time has
// arrived, oldest first. Used by the scheduler sweep.
func (db *DB) ListDueScheduledChapters(ctx context.Context, now time.Time, limit int) ([]models.Chapter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+chapterColumns+`
		FROM chapters
		WHERE status = 'scheduled' AND scheduled_for <= ?
		ORDER BY scheduled_for
		LIMIT ?
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled chapters: %w", err)
	}
	defer rows.Close()

	chapters := []models.Chapter{}
	for rows.Next() {
		chapter, err := scanChapterRow(rows)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, *chapter)
	}
	return chapters, rows.Err()
}

// chapterScanData holds scanned database values before conversion to models.Chapter.
type chapterScanData struct {
	id, workID                string
	number                    int
	title                     string
	body, pagesJSON           sql.NullString
	status, minTier           string
	wordCount                 int64
	publishedAt, scheduledFor sql.NullTime
	createdAt, updatedAt      time.Time
}

func (d *chapterScanData) toChapter() (*models.Chapter, error) {
	chapter := &models.Chapter{
		ID:           d.id,
		WorkID:       d.workID,
		Number:       d.number,
		Title:        d.title,
		Body:         d.body.String,
		Status:       d.status,
		MinTier:      d.minTier,
		WordCount:    d.wordCount,
		PublishedAt:  timePtr(d.publishedAt),
		ScheduledFor: timePtr(d.scheduledFor),
		CreatedAt:    d.createdAt,
		UpdatedAt:    d.updatedAt,
	}

	var err error
	if chapter.Pages, err = unmarshalStringList(d.pagesJSON); err != nil {
		return nil, fmt.Errorf("failed to parse pages: %w", err)
	}
	return chapter, nil
}

func (d *chapterScanData) scanTargets() []any {
	return []any{
		&d.id, &d.workID, &d.number, &d.title, &d.body, &d.pagesJSON,
		&d.status, &d.minTier, &d.wordCount,
		&d.publishedAt, &d.scheduledFor, &d.createdAt, &d.updatedAt,
	}
}

func scanChapter(row *sql.Row) (*models.Chapter, error) {
	var d chapterScanData
	err := row.Scan(d.scanTargets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chapter: %w", err)
	}
	return d.toChapter()
}

func scanChapterRow(rows *sql.Rows) (*models.Chapter, error) {
	var d chapterScanData
	if err := rows.Scan(d.scanTargets()...); err != nil {
		return nil, fmt.Errorf("failed to scan chapter: %w", err)
	}
	return d.toChapter()
}
