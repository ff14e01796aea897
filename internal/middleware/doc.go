// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration. These
components work alongside the authentication and authorization middleware to
create a complete middleware stack for HTTP request processing.

Key Components:

  - Compression: Gzip compression for responses
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

All middleware use the chi convention func(http.Handler) http.Handler and
are installed once on the router:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)
	r.Use(perfMon.Middleware)

Usage Example - Performance Monitoring:

	perfMon := middleware.NewPerformanceMonitor(1000)
	r.Use(perfMon.Middleware)

	// Aggregates for the admin dashboard
	stats := perfMon.GetStats()

Request IDs honor an upstream X-Request-ID header when present, otherwise a
UUID v4 is generated. The ID is echoed in the response header and threaded
into the logging context so each log line produced while serving a request
carries its request_id and correlation_id.

The Prometheus middleware labels requests with the chi route pattern rather
than the raw URL path so that per-work and per-chapter URLs collapse into a
bounded set of series.
*/
package middleware
