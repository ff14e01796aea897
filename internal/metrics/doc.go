// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Database query performance (DuckDB)
  - Authentication and session activity
  - Publishing activity (works created, chapters released, scheduled release lag)
  - Engagement activity (bookmarks, ratings, comments, searches)
  - Billing webhook processing and subscription counts
  - Notification creation and digest scheduler runs
  - Media upload volume
  - Domain event bus throughput
  - Circuit breaker state transitions
  - WebSocket connection counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type
  - duckdb_connection_pool_size: Connections in use (gauge)

Authentication Metrics:
  - auth_logins_total: Login attempts (counter)
    Labels: provider (local, oidc), result (success, invalid, locked, suspended)
  - auth_registrations_total: Account registrations (counter)
    Labels: provider
  - auth_active_sessions: Active sessions (gauge)
  - authorization_denials_total: Denied authorization checks (counter)
    Labels: object, action

Publishing Metrics:
  - works_created_total: Works created (counter)
    Labels: kind (story, comic)
  - chapters_published_total: Chapters published (counter)
    Labels: trigger (manual, scheduled)
  - scheduled_release_lag_seconds: Delay past scheduled release time (histogram)
  - chapter_reads_total: Chapter reads (counter)

Engagement Metrics:
  - bookmarks_changed_total: Bookmark additions/removals (counter)
    Labels: op (add, remove)
  - ratings_submitted_total: Ratings submitted or updated (counter)
  - comments_posted_total: Comments posted (counter)
    Labels: kind (comment, reply)
  - comments_moderated_total: Moderator actions on comments (counter)
    Labels: action (hide, remove, restore)
  - search_queries_total / search_duration_seconds: Catalog searches

Billing Metrics:
  - billing_webhooks_received_total: Webhook deliveries (counter)
    Labels: event_type, result (processed, duplicate, invalid_signature, error)
  - subscriptions_active: Active subscriptions by tier (gauge)
  - subscriptions_lapsed_total: Subscriptions expired by the lapse sweep (counter)

Notification Metrics:
  - notifications_created_total: Notifications created (counter)
    Labels: kind
  - digest_runs_total / digest_run_duration_seconds / digest_recipients:
    Digest scheduler activity

# Usage

Record metrics via the helper functions:

	metrics.RecordAPIRequest("GET", "/api/v1/works", "200", duration)
	metrics.RecordLogin("local", "success")
	metrics.RecordChapterRelease("scheduled", lag)
	metrics.RecordBillingWebhook("payment.settled", "processed")

All metrics are registered with the default Prometheus registry via promauto
and are safe for concurrent use.
*/
package metrics
