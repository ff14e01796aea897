// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// ratings.go - Rating and Review Operations
//
// One rating per (user, work). A second write replaces the first, and the
// work's rating_sum / rating_count aggregates are adjusted by the delta in
// the same transaction, so the average is always computable without a scan.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

// UpsertRating writes a user's rating for a work and keeps the work
// aggregates in sync. Returns true when this was the user's first rating.
func (db *DB) UpsertRating(ctx context.Context, rating *models.Rating) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return false, err
	}
	defer rollbackQuietly(tx)

	var oldScore int
	err = tx.QueryRowContext(ctx,
		`SELECT score FROM ratings WHERE user_id = ? AND work_id = ?`,
		rating.UserID, rating.WorkID,
	).Scan(&oldScore)

	isNew := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isNew {
		return false, fmt.Errorf("failed to read existing rating: %w", err)
	}

	now := time.Now()
	if isNew {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ratings (user_id, work_id, score, review, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rating.UserID, rating.WorkID, rating.Score, nullableString(rating.Review), now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert rating: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE works SET rating_sum = rating_sum + ?, rating_count = rating_count + 1 WHERE id = ?
		`, rating.Score, rating.WorkID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE ratings SET score = ?, review = ?, updated_at = ?
			WHERE user_id = ? AND work_id = ?
		`, rating.Score, nullableString(rating.Review), now, rating.UserID, rating.WorkID)
		if err != nil {
			return false, fmt.Errorf("failed to update rating: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE works SET rating_sum = rating_sum + ? WHERE id = ?
		`, rating.Score-oldScore, rating.WorkID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update rating aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit rating write: %w", err)
	}
	return isNew, nil
}

// DeleteRating removes a user's rating and backs it out of the aggregates.
func (db *DB) DeleteRating(ctx context.Context, userID, workID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := beginTx(ctx, db.conn)
	if err != nil {
		return err
	}
	defer rollbackQuietly(tx)

	var score int
	err = tx.QueryRowContext(ctx,
		`SELECT score FROM ratings WHERE user_id = ? AND work_id = ?`,
		userID, workID,
	).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rating: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read rating: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ratings WHERE user_id = ? AND work_id = ?`, userID, workID); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE works SET rating_sum = rating_sum - ?, rating_count = rating_count - 1 WHERE id = ?
	`, score, workID)
	if err != nil {
		return fmt.Errorf("failed to update rating aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rating delete: %w", err)
	}
	return nil
}

// GetRating retrieves a user's rating for a work. Returns nil when absent.
func (db *DB) GetRating(ctx context.Context, userID, workID string) (*models.Rating, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT r.user_id, u.username, r.work_id, r.score, r.review, r.created_at, r.updated_at
		FROM ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.user_id = ? AND r.work_id = ?
	`, userID, workID)

	var r models.Rating
	var review sql.NullString
	err := row.Scan(&r.UserID, &r.Username, &r.WorkID, &r.Score, &review, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rating: %w", err)
	}

	r.Review = review.String
	return &r, nil
}

// ListReviews returns ratings with review text for a work, newest first.
func (db *DB) ListReviews(ctx context.Context, workID string, offset, limit int) ([]models.Rating, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ratings WHERE work_id = ? AND review IS NOT NULL AND review <> ''
	`, workID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.user_id, u.username, r.work_id, r.score, r.review, r.created_at, r.updated_at
		FROM ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.work_id = ? AND r.review IS NOT NULL AND r.review <> ''
		ORDER BY r.updated_at DESC
		LIMIT ? OFFSET ?
	`, workID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	ratings := []models.Rating{}
	for rows.Next() {
		var r models.Rating
		var review sql.NullString
		if err := rows.Scan(&r.UserID, &r.Username, &r.WorkID, &r.Score, &review, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		r.Review = review.String
		ratings = append(ratings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reviews: %w", err)
	}

	return ratings, total, nil
}
