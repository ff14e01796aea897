// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// works.go - Work Database Operations
//
// This file contains CRUD and browse operations for works.
//
// Performance:
//   - Browse listings are served from the works table alone: rating,
//     bookmark, and view counters are denormalized columns
//   - Genre and tag lists are stored as JSON text and filtered with LIKE
//     against the quoted term, which is exact for JSON-encoded arrays
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

const workColumns = `
	w.id, w.author_id, u.username, w.title, w.slug, w.kind, w.summary,
	w.genres, w.tags, w.status, w.cover_path, w.min_tier,
	w.rating_sum, w.rating_count, w.bookmark_count, w.view_count,
	w.word_count, w.chapter_count, w.published_at, w.created_at, w.updated_at
`

const workFrom = ` FROM works w JOIN users u ON u.id = w.author_id `

// CreateWork creates a new draft work.
func (db *DB) CreateWork(ctx context.Context, work *models.Work) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	genresJSON, err := marshalStringList(work.Genres)
	if err != nil {
		return fmt.Errorf("failed to marshal genres: %w", err)
	}
	tagsJSON, err := marshalStringList(work.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO works (
			id, author_id, title, slug, kind, summary, genres, tags,
			status, cover_path, min_tier, published_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.conn.ExecContext(ctx, query,
		work.ID, work.AuthorID, work.Title, work.Slug, work.Kind,
		nullableString(work.Summary), genresJSON, tagsJSON,
		work.Status, nullableString(work.CoverPath), work.MinTier,
		nullableTime(work.PublishedAt), work.CreatedAt, work.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert work: %w", err)
	}

	return nil
}

// GetWorkByID retrieves a work by id. Returns nil when no work matches.
func (db *DB) GetWorkByID(ctx context.Context, id string) (*models.Work, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+workColumns+workFrom+`WHERE w.id = ?`, id)
	return scanWork(row)
}

// GetWorkBySlug retrieves a work by slug. Returns nil when no work matches.
func (db *DB) GetWorkBySlug(ctx context.Context, slug string) (*models.Work, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+workColumns+workFrom+`WHERE w.slug = ?`, slug)
	return scanWork(row)
}

// SlugExists reports whether a slug is already taken.
func (db *DB) SlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM works WHERE slug = ?`, slug).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}

// UpdateWork updates the mutable metadata fields of a work.
func (db *DB) UpdateWork(ctx context.Context, work *models.Work) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	genresJSON, err := marshalStringList(work.Genres)
	if err != nil {
		return fmt.Errorf("failed to marshal genres: %w", err)
	}
	tagsJSON, err := marshalStringList(work.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		UPDATE works SET
			title = ?,
			summary = ?,
			genres = ?,
			tags = ?,
			cover_path = ?,
			min_tier = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := db.conn.ExecContext(ctx, query,
		work.Title, nullableString(work.Summary), genresJSON, tagsJSON,
		nullableString(work.CoverPath), work.MinTier, time.Now(), work.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update work: %w", err)
	}

	return checkRowsAffected(result, "work")
}

// UpdateWorkStatus transitions a work between draft, published, and archived.
// The first transition to published stamps published_at.
func (db *DB) UpdateWorkStatus(ctx context.Context, workID, status string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		UPDATE works SET
			status = ?,
			published_at = CASE WHEN ? = 'published' AND published_at IS NULL THEN ? ELSE published_at END,
			updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := db.conn.ExecContext(ctx, query, status, status, now, now, workID)
	if err != nil {
		return fmt.Errorf("failed to update work status: %w", err)
	}

	return checkRowsAffected(result, "work")
}

// DeleteWork removes a work and its dependents.
func (db *DB) DeleteWork(ctx context.Context, workID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	// Chapter comments go first, then the chapters and per-work rows.
	deletes := []struct {
		query   string
		subject string
	}{
		{`DELETE FROM comments WHERE chapter_id IN (SELECT id FROM chapters WHERE work_id = ?)`, ""},
		{`DELETE FROM chapters WHERE work_id = ?`, ""},
		{`DELETE FROM bookmarks WHERE work_id = ?`, ""},
		{`DELETE FROM ratings WHERE work_id = ?`, ""},
		{`DELETE FROM works WHERE id = ?`, "work"},
	}

	for _, d := range deletes {
		result, err := tx.ExecContext(ctx, d.query, workID)
		if err != nil {
			return fmt.Errorf("failed to delete work rows: %w", err)
		}
		if d.subject != "" {
			if err := checkRowsAffected(result, d.subject); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit work delete: %w", err)
	}
	return nil
}

// IncrementViewCount bumps the view counter for a work.
func (db *DB) IncrementViewCount(ctx context.Context, workID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`UPDATE works SET view_count = view_count + 1 WHERE id = ?`, workID)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// ListWorks returns a filtered, sorted page of works plus the total count.
func (db *DB) ListWorks(ctx context.Context, filter models.WorkListFilter) ([]models.Work, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := buildWorkFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*)` + workFrom + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count works: %w", err)
	}

	query := `SELECT ` + workColumns + workFrom + where + workOrderBy(filter.Sort) + ` LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query works: %w", err)
	}
	defer rows.Close()

	works := []models.Work{}
	for rows.Next() {
		work, err := scanWorkRow(rows)
		if err != nil {
			return nil, 0, err
		}
		works = append(works, *work)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating works: %w", err)
	}

	return works, total, nil
}

// buildWorkFilter assembles the WHERE clause for a work listing.
func buildWorkFilter(filter models.WorkListFilter) (string, []any) {
	clauses := []string{}
	args := []any{}

	if filter.Status != "" {
		clauses = append(clauses, `w.status = ?`)
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		clauses = append(clauses, `w.kind = ?`)
		args = append(args, filter.Kind)
	}
	if filter.AuthorID != "" {
		clauses = append(clauses, `w.author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if filter.Genre != "" {
		// genres holds a JSON array; matching the quoted term is exact
		clauses = append(clauses, `w.genres LIKE ?`)
		args = append(args, `%"`+filter.Genre+`"%`)
	}
	if filter.Tag != "" {
		clauses = append(clauses, `w.tags LIKE ?`)
		args = append(args, `%"`+filter.Tag+`"%`)
	}
	if filter.Query != "" {
		clauses = append(clauses, `(w.title ILIKE ? OR w.summary ILIKE ? OR u.username ILIKE ?)`)
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return `WHERE ` + strings.Join(clauses, " AND "), args
}

// workOrderBy maps a sort key to an ORDER BY clause. Trending weighs recent
// activity: bookmark and view counts scaled down by days since last update.
func workOrderBy(sort string) string {
	switch sort {
	case models.WorkSortRating:
		return ` ORDER BY CASE WHEN w.rating_count = 0 THEN 0 ELSE CAST(w.rating_sum AS DOUBLE) / w.rating_count END DESC, w.rating_count DESC`
	case models.WorkSortBookmarks:
		return ` ORDER BY w.bookmark_count DESC, w.updated_at DESC`
	case models.WorkSortViews:
		return ` ORDER BY w.view_count DESC, w.updated_at DESC`
	case models.WorkSortTrending:
		return ` ORDER BY (w.bookmark_count + w.view_count / 10.0) / (1 + date_diff('day', w.updated_at, CURRENT_TIMESTAMP)) DESC`
	default:
		return ` ORDER BY w.updated_at DESC`
	}
}

// ListGenres returns distinct genres with usage counts across published works.
func (db *DB) ListGenres(ctx context.Context) ([]models.TermCount, error) {
	return db.listTerms(ctx, "genres")
}

// ListTags returns distinct tags with usage counts across published works.
func (db *DB) ListTags(ctx context.Context) ([]models.TermCount, error) {
	return db.listTerms(ctx, "tags")
}

func (db *DB) listTerms(ctx context.Context, column string) ([]models.TermCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	// column is one of the two fixed names above, never user input
	query := fmt.Sprintf(`
		SELECT term, COUNT(*) AS uses
		FROM (
			SELECT unnest(CAST(%s AS VARCHAR[])) AS term
			FROM works
			WHERE status = 'published' AND %s IS NOT NULL
		)
		GROUP BY term
		ORDER BY uses DESC, term
	`, column, column)

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", column, err)
	}
	defer rows.Close()

	terms := []models.TermCount{}
	for rows.Next() {
		var tc models.TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// workScanData holds scanned database values before conversion to models.Work.
type workScanData struct {
	id, authorID, authorUsername string
	title, slug, kind            string
	summary                      sql.NullString
	genresJSON, tagsJSON         sql.NullString
	status                       string
	coverPath                    sql.NullString
	minTier                      string
	ratingSum, ratingCount       int64
	bookmarkCount, viewCount     int64
	wordCount, chapterCount      int64
	publishedAt                  sql.NullTime
	createdAt, updatedAt         time.Time
}

func (d *workScanData) toWork() (*models.Work, error) {
	work := &models.Work{
		ID:             d.id,
		AuthorID:       d.authorID,
		AuthorUsername: d.authorUsername,
		Title:          d.title,
		Slug:           d.slug,
		Kind:           d.kind,
		Summary:        d.summary.String,
		Status:         d.status,
		CoverPath:      d.coverPath.String,
		MinTier:        d.minTier,
		RatingSum:      d.ratingSum,
		RatingCount:    d.ratingCount,
		BookmarkCount:  d.bookmarkCount,
		ViewCount:      d.viewCount,
		WordCount:      d.wordCount,
		ChapterCount:   d.chapterCount,
		PublishedAt:    timePtr(d.publishedAt),
		CreatedAt:      d.createdAt,
		UpdatedAt:      d.updatedAt,
	}

	var err error
	if work.Genres, err = unmarshalStringList(d.genresJSON); err != nil {
		return nil, fmt.Errorf("failed to parse genres: %w", err)
	}
	if work.Tags, err = unmarshalStringList(d.tagsJSON); err != nil {
		return nil, fmt.Errorf("failed to parse tags: %w", err)
	}

	return work, nil
}

func (d *workScanData) scanTargets() []any {
	return []any{
		&d.id, &d.authorID, &d.authorUsername, &d.title, &d.slug, &d.kind, &d.summary,
		&d.genresJSON, &d.tagsJSON, &d.status, &d.coverPath, &d.minTier,
		&d.ratingSum, &d.ratingCount, &d.bookmarkCount, &d.viewCount,
		&d.wordCount, &d.chapterCount, &d.publishedAt, &d.createdAt, &d.updatedAt,
	}
}

func scanWork(row *sql.Row) (*models.Work, error) {
	var d workScanData
	err := row.Scan(d.scanTargets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan work: %w", err)
	}
	return d.toWork()
}

func scanWorkRow(rows *sql.Rows) (*models.Work, error) {
	var d workScanData
	if err := rows.Scan(d.scanTargets()...); err != nil {
		return nil, fmt.Errorf("failed to scan work: %w", err)
	}
	return d.toWork()
}

// marshalStringList marshals a string slice to a NullString for storage.
// Empty slices are stored as NULL.
func marshalStringList(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalStringList(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(ns.String), &list); err != nil {
		return nil, err
	}
	return list, nil
}
