// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/paperbound/paperbound/internal/config"
)

// Router wraps the watermill router with pre-configured middleware:
// panic recovery and exponential-backoff retry for transient handler
// failures. Handlers ack on success and nack on error automatically.
type Router struct {
	router     *message.Router
	subscriber message.Subscriber
}

// NewRouter creates the event router over the bus subscriber.
func NewRouter(cfg config.EventsConfig, subscriber message.Subscriber) (*Router, error) {
	logger := NewWatermillLogger()

	closeTimeout := cfg.RouterCloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = 30 * time.Second
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: closeTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 5
	}
	retryDelay := cfg.RetryInitialDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      retryCount,
		InitialInterval: retryDelay,
		MaxInterval:     time.Minute,
		Multiplier:      2.0,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	return &Router{
		router:     wmRouter,
		subscriber: subscriber,
	}, nil
}

// AddConsumerHandler registers a consume-only handler for a topic.
func (r *Router) AddConsumerHandler(name, topic string, handler message.NoPublishHandlerFunc) {
	r.router.AddConsumerHandler(name, topic, r.subscriber, handler)
}

// Run starts the router and blocks until the context is canceled.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes once all handlers are consuming.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight
// messages.
func (r *Router) Close() error {
	return r.router.Close()
}
