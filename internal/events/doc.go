// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package events is the domain event bus.
//
// Request handlers publish typed events (chapter.published,
// work.published, rating.created, comment.created,
// subscription.changed) through Publisher; the Router consumes them
// and drives side effects: fanning chapter releases out to bookmark
// notifications, notifying authors of ratings, and notifying comment
// authors of replies. Connected websocket clients get a live push for
// every notification written.
//
// The transport behind the Bus is watermill's in-process gochannel by
// default, or NATS JetStream (external or embedded) when
// events.nats_enabled is set. Handlers are transport-agnostic.
package events
