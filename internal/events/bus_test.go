// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/config"
)

func newChannelBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(config.EventsConfig{NATSEnabled: false})
	if err != nil {
		t.Fatalf("NewBus failed: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	t.Parallel()

	bus := newChannelBus(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber().Subscribe(ctx, TopicChapterPublished)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	publisher := NewPublisher(bus.Publisher())
	event := &ChapterPublished{
		EventID:       NewEventID(),
		WorkID:        "work-1",
		WorkTitle:     "Ninth Bell",
		AuthorID:      "author-1",
		ChapterID:     "chapter-1",
		ChapterNumber: 1,
	}
	if err := publisher.ChapterPublished(event); err != nil {
		t.Fatalf("ChapterPublished failed: %v", err)
	}

	select {
	case msg := <-messages:
		if msg.UUID != event.EventID {
			t.Errorf("expected message UUID %s, got %s", event.EventID, msg.UUID)
		}
		var received ChapterPublished
		if err := json.Unmarshal(msg.Payload, &received); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if received.WorkTitle != "Ninth Bell" {
			t.Errorf("unexpected payload: %+v", received)
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestRouterDeliversToHandler(t *testing.T) {
	t.Parallel()

	bus := newChannelBus(t)

	router, err := NewRouter(config.EventsConfig{
		RetryCount:         1,
		RetryInitialDelay:  time.Millisecond,
		RouterCloseTimeout: time.Second,
	}, bus.Subscriber())
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	store := &fakeStore{subscribers: []string{"reader-1"}}
	NewHandlers(store, nil).Register(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := router.Run(ctx); err != nil && ctx.Err() == nil {
			t.Errorf("router stopped unexpectedly: %v", err)
		}
	}()
	<-router.Running()

	publisher := NewPublisher(bus.Publisher())
	event := &ChapterPublished{
		EventID:   NewEventID(),
		WorkID:    "work-1",
		WorkTitle: "Ninth Bell",
		AuthorID:  "author-1",
		ChapterID: "chapter-1",
	}
	if err := publisher.ChapterPublished(event); err != nil {
		t.Fatalf("ChapterPublished failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for len(store.notifications()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for fan-out notification")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPublisherClosed(t *testing.T) {
	t.Parallel()

	bus := newChannelBus(t)
	publisher := NewPublisher(bus.Publisher())

	if err := publisher.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := publisher.WorkPublished(&WorkPublished{EventID: NewEventID(), WorkID: "work-1"})
	if err == nil {
		t.Fatal("expected error publishing through closed publisher")
	}
}

func TestBusCloseIdempotent(t *testing.T) {
	t.Parallel()

	bus, err := NewBus(config.EventsConfig{})
	if err != nil {
		t.Fatalf("NewBus failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
