// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package supervisor builds the Suture supervision tree that runs
// Paperbound's long-lived components.
//
// The tree has three layers:
//
//   - messaging: the websocket hub and the event router that fans
//     chapter releases out to notifications
//   - jobs: the digest scheduler and the session cleanup sweep
//   - api: the HTTP server
//
// Layering isolates failures: an event-router crash restarts the
// messaging layer while the HTTP server keeps answering, and vice
// versa. Suture restarts a crashed child with exponential backoff and
// logs every lifecycle event through the sutureslog bridge into the
// zerolog logger.
package supervisor
