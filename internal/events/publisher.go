// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package events

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/paperbound/paperbound/internal/metrics"
)

// Publisher publishes typed domain events onto the bus.
//
// Publishing is best-effort from the caller's point of view: request
// handlers treat a publish failure as a logged degradation, not a
// request failure, so the write that triggered the event never rolls
// back because the bus hiccuped.
//
// Thread Safety: safe for concurrent use.
type Publisher struct {
	publisher message.Publisher
	mu        sync.RWMutex
	closed    bool
}

// NewPublisher wraps a transport publisher with event serialization.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{publisher: pub}
}

// ChapterPublished publishes a chapter.published event.
func (p *Publisher) ChapterPublished(event *ChapterPublished) error {
	return p.publish(TopicChapterPublished, event.EventID, event)
}

// WorkPublished publishes a work.published event.
func (p *Publisher) WorkPublished(event *WorkPublished) error {
	return p.publish(TopicWorkPublished, event.EventID, event)
}

// RatingCreated publishes a rating.created event.
func (p *Publisher) RatingCreated(event *RatingCreated) error {
	return p.publish(TopicRatingCreated, event.EventID, event)
}

// CommentCreated publishes a comment.created event.
func (p *Publisher) CommentCreated(event *CommentCreated) error {
	return p.publish(TopicCommentCreated, event.EventID, event)
}

// SubscriptionChanged publishes a subscription.changed event.
func (p *Publisher) SubscriptionChanged(event *SubscriptionChanged) error {
	return p.publish(TopicSubscriptionChanged, event.EventID, event)
}

func (p *Publisher) publish(topic, eventID string, event interface{}) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("event publisher is closed")
	}
	p.mu.RUnlock()

	data, err := marshalEvent(event)
	if err != nil {
		return err
	}

	if eventID == "" {
		eventID = NewEventID()
	}
	msg := message.NewMessage(eventID, data)
	// JetStream deduplicates on Nats-Msg-Id; harmless metadata elsewhere.
	msg.Metadata.Set(natsgo.MsgIdHdr, eventID)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	metrics.RecordEventPublished(topic)
	return nil
}

// Close stops accepting publishes. The underlying transport is owned
// and closed by the Bus.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
