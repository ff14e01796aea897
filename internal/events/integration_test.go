// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/testinfra"
)

// TestNATSRoundTrip runs the publisher, router, and chapter fan-out
// handler against a real NATS JetStream broker.
func TestNATSRoundTrip(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	natsContainer, err := testinfra.NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("failed to start NATS container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, natsContainer.Container)

	cfg := config.EventsConfig{
		NATSEnabled:        true,
		NATSURL:            natsContainer.URL,
		DurableName:        "paperbound-test",
		RetryCount:         2,
		RetryInitialDelay:  10 * time.Millisecond,
		RouterCloseTimeout: 5 * time.Second,
	}

	bus, err := NewBus(cfg)
	if err != nil {
		t.Fatalf("NewBus failed: %v", err)
	}
	defer bus.Close()

	router, err := NewRouter(cfg, bus.Subscriber())
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	store := &fakeStore{subscribers: []string{"reader-1", "reader-2"}}
	pusher := newFakePusher()
	NewHandlers(store, pusher).Register(router)

	runCtx, stopRouter := context.WithCancel(ctx)
	defer stopRouter()
	go func() {
		if err := router.Run(runCtx); err != nil && runCtx.Err() == nil {
			t.Errorf("router stopped unexpectedly: %v", err)
		}
	}()

	select {
	case <-router.Running():
	case <-ctx.Done():
		t.Fatal("timed out waiting for router to start")
	}

	publisher := NewPublisher(bus.Publisher())
	event := &ChapterPublished{
		EventID:       NewEventID(),
		WorkID:        "work-1",
		WorkTitle:     "Ninth Bell",
		AuthorID:      "author-1",
		ChapterID:     "chapter-1",
		ChapterNumber: 1,
		OccurredAt:    time.Now(),
	}
	if err := publisher.ChapterPublished(event); err != nil {
		t.Fatalf("ChapterPublished failed: %v", err)
	}

	deadline := time.After(30 * time.Second)
	for len(store.notifications()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out: %d of 2 notifications created", len(store.notifications()))
		case <-time.After(50 * time.Millisecond):
		}
	}

	for _, userID := range []string{"reader-1", "reader-2"} {
		if pusher.pushCount(userID) == 0 {
			t.Errorf("expected websocket push for %s", userID)
		}
	}
}
