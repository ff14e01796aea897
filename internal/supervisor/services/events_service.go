// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package services

import (
	"context"
)

// EventRouter matches *events.Router's blocking Run method.
type EventRouter interface {
	Run(ctx context.Context) error
}

// EventRouterService runs the watermill router that fans domain events
// out to notifications, the websocket hub, and metrics. A crash here
// restarts the router without touching the HTTP layer; messages queued
// on the bus are redelivered once the handlers are back.
type EventRouterService struct {
	router EventRouter
	name   string
}

// NewEventRouterService creates an event router service wrapper.
func NewEventRouterService(router EventRouter) *EventRouterService {
	return &EventRouterService{
		router: router,
		name:   "event-router",
	}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	return s.router.Run(ctx)
}

// String implements fmt.Stringer for the supervisor's logs.
func (s *EventRouterService) String() string {
	return s.name
}
