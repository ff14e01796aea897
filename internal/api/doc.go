// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package api provides the HTTP surface of Paperbound: Chi routing,
// request middleware (CORS, rate limits, security headers), and the
// handlers for accounts, works, chapters, reading, membership,
// notifications, moderation, and media.
//
// All endpoints respond with the models.APIResponse envelope. Write
// endpoints authenticate via JWT (HTTP-only cookie or Authorization
// bearer header) and authorize through Casbin role policies.
package api
