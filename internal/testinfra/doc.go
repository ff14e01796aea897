// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package testinfra provides Docker-backed infrastructure for
// integration tests: a NATS JetStream container for exercising the
// event bus against a real broker, plus shared helpers for skipping
// when Docker is absent and cleaning containers up.
//
// Everything here is behind the integration build tag; unit tests and
// production builds never compile it.
package testinfra
