// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package websocket implements the live notification feed.
//
// The Hub tracks connections per authenticated user, so a single
// notification (new chapter, comment reply, rating) reaches every tab
// the reader has open. The event consumers hand the hub raw JSON
// notification payloads via SendToUser; site-wide announcements go out
// through BroadcastJSON.
//
// The hub runs under the supervision tree via RunWithContext and closes
// every client on shutdown.
package websocket
