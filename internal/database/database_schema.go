// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

/*
database_schema.go - Database Schema Management

Tables:
  - users: Accounts with role, tier, and status
  - works: Stories and comics with denormalized rating/bookmark/view counters
  - chapters: Installments; story chapters carry a body, comic chapters pages
  - bookmarks: One row per (user, work), doubling as reading progress
  - ratings: One row per (user, work); work aggregates updated in the same tx
  - comments: Chapter comments with one-level threading
  - subscriptions: Paid memberships mirrored onto users.tier
  - billing_events: Processed webhook event ids for idempotent delivery
  - notifications: Per-user inbox with JSON payloads
  - audit_log: Append-only record of moderation and admin actions
  - digest_runs: Bookkeeping for the periodic reading digest

Schema Strategy:
All columns are defined in the initial CREATE TABLE statement, giving a single
source of truth and fast startup. Post-release schema changes go through
versioned migrations in migrations.go.

Index Strategy:
Indexes cover the hot read paths: browse listings (status + sort column),
chapter ordering, library lookups, comment threads, and inbox queries.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := db.getTableCreationQueries()

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func (db *DB) getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT,
			bio TEXT,
			avatar_path TEXT,
			role TEXT NOT NULL DEFAULT 'reader',
			tier TEXT NOT NULL DEFAULT 'free',
			status TEXT NOT NULL DEFAULT 'active',
			last_login_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// rating_sum and rating_count are maintained transactionally with
		// rating writes; bookmark_count mirrors bookmark rows the same way.
		`CREATE TABLE IF NOT EXISTS works (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			summary TEXT,
			genres TEXT,
			tags TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			cover_path TEXT,
			min_tier TEXT NOT NULL DEFAULT 'free',
			rating_sum BIGINT NOT NULL DEFAULT 0,
			rating_count BIGINT NOT NULL DEFAULT 0,
			bookmark_count BIGINT NOT NULL DEFAULT 0,
			view_count BIGINT NOT NULL DEFAULT 0,
			word_count BIGINT NOT NULL DEFAULT 0,
			chapter_count BIGINT NOT NULL DEFAULT 0,
			published_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS chapters (
			id TEXT PRIMARY KEY,
			work_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT,
			pages TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			min_tier TEXT NOT NULL DEFAULT 'free',
			word_count BIGINT NOT NULL DEFAULT 0,
			published_at TIMESTAMP,
			scheduled_for TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (work_id, number)
		)`,

		`CREATE TABLE IF NOT EXISTS bookmarks (
			user_id TEXT NOT NULL,
			work_id TEXT NOT NULL,
			last_chapter_id TEXT,
			last_chapter_number INTEGER NOT NULL DEFAULT 0,
			notify BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, work_id)
		)`,

		`CREATE TABLE IF NOT EXISTS ratings (
			user_id TEXT NOT NULL,
			work_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			review TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, work_id)
		)`,

		// Removed comments keep their row so reply threads keep their shape;
		// the body is blanked at read time.
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			chapter_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			parent_id TEXT,
			body TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'visible',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			tier TEXT NOT NULL,
			status TEXT NOT NULL,
			provider_ref TEXT,
			current_period_end TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Webhook idempotency ledger: an event_id that already exists here
		// has been applied and is acknowledged without reprocessing.
		`CREATE TABLE IF NOT EXISTS billing_events (
			event_id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			provider_ref TEXT NOT NULL,
			processed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			read_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			actor_id TEXT NOT NULL,
			actor_username TEXT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT,
			reason TEXT,
			ip_address TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS digest_runs (
			id TEXT PRIMARY KEY,
			ran_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			period_start TIMESTAMP NOT NULL,
			users_notified INTEGER NOT NULL DEFAULT 0
		)`,
	}
}

// createIndexes creates database indexes for query optimization
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}

// getIndexQueries returns index creation SQL statements
func (db *DB) getIndexQueries() []string {
	return []string{
		// Account lookups
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_users_created ON users(created_at DESC);`,

		// Browse listings
		`CREATE INDEX IF NOT EXISTS idx_works_author ON works(author_id);`,
		`CREATE INDEX IF NOT EXISTS idx_works_status_updated ON works(status, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_works_status_views ON works(status, view_count DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_works_status_bookmarks ON works(status, bookmark_count DESC);`,

		// Chapter ordering and scheduled publishing
		`CREATE INDEX IF NOT EXISTS idx_chapters_work_number ON chapters(work_id, number);`,
		`CREATE INDEX IF NOT EXISTS idx_chapters_status_scheduled ON chapters(status, scheduled_for);`,

		// Library and social reads
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_work ON bookmarks(work_id);`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_updated ON bookmarks(user_id, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_work ON ratings(work_id, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_chapter ON comments(chapter_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);`,

		// Billing
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_provider ON subscriptions(provider_ref);`,

		// Inbox
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);`,

		// Audit trail
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_log(actor_id);`,
	}
}
