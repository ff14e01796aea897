// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// digest.go - Reading Digest Queries
//
// The digest sweep runs on an interval, finds users whose bookmarked works
// gained published chapters since the last run, and records the run in
// digest_runs so restarts never double-send a period.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/models"
)

// LastDigestRun returns the time of the most recent digest run, or the zero
// time when no digest has ever run.
func (db *DB) LastDigestRun(ctx context.Context) (time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var ranAt time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT ran_at FROM digest_runs ORDER BY ran_at DESC LIMIT 1`).Scan(&ranAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last digest run: %w", err)
	}
	return ranAt, nil
}

// RecordDigestRun records a completed digest sweep.
func (db *DB) RecordDigestRun(ctx context.Context, periodStart time.Time, usersNotified int) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO digest_runs (id, ran_at, period_start, users_notified)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), time.Now(), periodStart, usersNotified)
	if err != nil {
		return fmt.Errorf("failed to record digest run: %w", err)
	}
	return nil
}

// DigestCandidate is one user's digest content: the bookmarked works that
// gained published chapters since the period start.
type DigestCandidate struct {
	UserID string
	Works  []models.DigestWork
}

// ListDigestCandidates returns per-user digest content for bookmarks with
// notify enabled, limited to batchSize users per call.
func (db *DB) ListDigestCandidates(ctx context.Context, since time.Time, batchSize int) ([]DigestCandidate, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT b.user_id, w.id, w.title, COUNT(c.id) AS new_chapters
		FROM bookmarks b
		JOIN works w ON w.id = b.work_id
		JOIN chapters c ON c.work_id = b.work_id
			AND c.status = 'published'
			AND c.published_at >= ?
		JOIN users u ON u.id = b.user_id
		WHERE b.notify = true AND u.status = 'active'
		GROUP BY b.user_id, w.id, w.title
		ORDER BY b.user_id, w.title
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest candidates: %w", err)
	}
	defer rows.Close()

	candidates := []DigestCandidate{}
	var current *DigestCandidate

	for rows.Next() {
		var userID string
		var work models.DigestWork
		if err := rows.Scan(&userID, &work.WorkID, &work.WorkTitle, &work.NewChapters); err != nil {
			return nil, fmt.Errorf("failed to scan digest candidate: %w", err)
		}

		if current == nil || current.UserID != userID {
			if len(candidates) >= batchSize {
				break
			}
			candidates = append(candidates, DigestCandidate{UserID: userID})
			current = &candidates[len(candidates)-1]
		}
		current.Works = append(current.Works, work)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digest candidates: %w", err)
	}

	return candidates, nil
}
