// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Authentication and session activity
// - Publishing, reading, and engagement activity
// - Billing webhook processing
// - Notification delivery and digest runs
// - WebSocket connections

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Authentication Metrics
	AuthLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"provider", "result"}, // result: "success", "invalid", "locked", "suspended"
	)

	AuthRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of account registrations",
		},
		[]string{"provider"},
	)

	AuthActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_active_sessions",
			Help: "Current number of active sessions",
		},
	)

	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_denials_total",
			Help: "Total number of denied authorization checks",
		},
		[]string{"object", "action"},
	)

	// Publishing Metrics
	WorksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "works_created_total",
			Help: "Total number of works created",
		},
		[]string{"kind"}, // "story", "comic"
	)

	ChaptersPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapters_published_total",
			Help: "Total number of chapters published",
		},
		[]string{"trigger"}, // "manual", "scheduled"
	)

	ScheduledReleaseLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduled_release_lag_seconds",
			Help:    "Delay between a chapter's scheduled time and its actual release",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ChapterReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chapter_reads_total",
			Help: "Total number of chapter reads",
		},
	)

	// Engagement Metrics
	BookmarksChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarks_changed_total",
			Help: "Total number of bookmark additions and removals",
		},
		[]string{"op"}, // "add", "remove"
	)

	RatingsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratings_submitted_total",
			Help: "Total number of ratings submitted or updated",
		},
	)

	CommentsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_posted_total",
			Help: "Total number of comments posted",
		},
		[]string{"kind"}, // "comment", "reply"
	)

	CommentsModerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_moderated_total",
			Help: "Total number of comments hidden or removed by moderators",
		},
		[]string{"action"}, // "hide", "remove", "restore"
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of catalog search queries",
		},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Duration of catalog search queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Billing Metrics
	BillingWebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhooks_received_total",
			Help: "Total number of billing webhook deliveries received",
		},
		[]string{"event_type", "result"}, // result: "processed", "duplicate", "invalid_signature", "error"
	)

	SubscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_active",
			Help: "Current number of active subscriptions by tier",
		},
		[]string{"tier"},
	)

	SubscriptionsLapsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_lapsed_total",
			Help: "Total number of subscriptions expired by the lapse sweep",
		},
	)

	// Notification Metrics
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"kind"}, // "chapter_released", "comment_reply", "digest", ...
	)

	DigestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Total number of digest scheduler runs",
		},
		[]string{"result"}, // "success", "error"
	)

	DigestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_run_duration_seconds",
			Help:    "Duration of digest scheduler runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	DigestRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_recipients",
			Help:    "Number of recipients per digest run",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
	)

	// Media Metrics
	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Total number of media uploads",
		},
		[]string{"kind", "result"}, // kind: "cover", "page", "avatar"; result: "success", "rejected", "error"
	)

	MediaUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_upload_bytes",
			Help:    "Size of uploaded media files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. ~256MiB
		},
	)

	// Cache Metrics (General)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "authz", "catalog", "session"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"topic"},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_processed_total",
			Help: "Total number of domain events processed by subscribers",
		},
		[]string{"topic", "handler", "result"}, // result: "success", "error"
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_processing_duration_seconds",
			Help:    "Duration of event handler execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "handler"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordLogin records a login attempt and its outcome
func RecordLogin(provider, result string) {
	AuthLogins.WithLabelValues(provider, result).Inc()
}

// RecordRegistration records an account registration
func RecordRegistration(provider string) {
	AuthRegistrations.WithLabelValues(provider).Inc()
}

// RecordAuthorizationDenial records a denied authorization check
func RecordAuthorizationDenial(object, action string) {
	AuthorizationDenials.WithLabelValues(object, action).Inc()
}

// RecordChapterRelease records a chapter publication. For scheduled
// releases, lag is the delay past the scheduled time.
func RecordChapterRelease(trigger string, lag time.Duration) {
	ChaptersPublished.WithLabelValues(trigger).Inc()
	if trigger == "scheduled" && lag > 0 {
		ScheduledReleaseLag.Observe(lag.Seconds())
	}
}

// RecordBillingWebhook records a billing webhook delivery and its outcome
func RecordBillingWebhook(eventType, result string) {
	BillingWebhooksReceived.WithLabelValues(eventType, result).Inc()
}

// RecordDigestRun records a digest scheduler run
func RecordDigestRun(duration time.Duration, recipients int, err error) {
	DigestRunDuration.Observe(duration.Seconds())
	if err != nil {
		DigestRuns.WithLabelValues("error").Inc()
		return
	}
	DigestRuns.WithLabelValues("success").Inc()
	DigestRecipients.Observe(float64(recipients))
}

// RecordMediaUpload records a media upload attempt
func RecordMediaUpload(kind, result string, sizeBytes int64) {
	MediaUploads.WithLabelValues(kind, result).Inc()
	if result == "success" && sizeBytes > 0 {
		MediaUploadBytes.Observe(float64(sizeBytes))
	}
}

// RecordSearchQuery records a catalog search and its duration
func RecordSearchQuery(duration time.Duration) {
	SearchQueries.Inc()
	SearchDuration.Observe(duration.Seconds())
}

// RecordEventPublished records a domain event publication
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventProcessed records an event handler execution
func RecordEventProcessed(topic, handler string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsProcessed.WithLabelValues(topic, handler, result).Inc()
	EventProcessingDuration.WithLabelValues(topic, handler).Observe(duration.Seconds())
}
