// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package services wraps Paperbound's long-running components as
// suture.Service implementations.
//
// Each wrapper adapts one component's run loop to suture's
// context-aware Serve contract and names it for the supervisor's logs.
// Components that already expose a blocking Run(ctx) method get a thin
// delegation; the HTTP server needs the ListenAndServe/Shutdown dance
// translated.
//
// Wrappers depend on small local interfaces rather than the concrete
// component types, which keeps them trivial to test with fakes.
package services
