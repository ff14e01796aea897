// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Topics for domain events on the bus.
const (
	TopicChapterPublished    = "chapter.published"
	TopicWorkPublished       = "work.published"
	TopicRatingCreated       = "rating.created"
	TopicCommentCreated      = "comment.created"
	TopicSubscriptionChanged = "subscription.changed"
)

// ChapterPublished fires when a chapter goes live, whether the author
// published it directly or the release sweep promoted a scheduled one.
type ChapterPublished struct {
	EventID       string    `json:"event_id"`
	WorkID        string    `json:"work_id"`
	WorkTitle     string    `json:"work_title"`
	AuthorID      string    `json:"author_id"`
	ChapterID     string    `json:"chapter_id"`
	ChapterNumber int       `json:"chapter_number"`
	ChapterTitle  string    `json:"chapter_title"`
	MinTier       string    `json:"min_tier"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// WorkPublished fires when a work moves from draft to published.
type WorkPublished struct {
	EventID    string    `json:"event_id"`
	WorkID     string    `json:"work_id"`
	WorkTitle  string    `json:"work_title"`
	AuthorID   string    `json:"author_id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RatingCreated fires on a new or updated rating.
type RatingCreated struct {
	EventID    string    `json:"event_id"`
	WorkID     string    `json:"work_id"`
	WorkTitle  string    `json:"work_title"`
	AuthorID   string    `json:"author_id"`
	UserID     string    `json:"user_id"`
	Stars      int       `json:"stars"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CommentCreated fires on a new comment or reply.
type CommentCreated struct {
	EventID    string    `json:"event_id"`
	CommentID  string    `json:"comment_id"`
	ChapterID  string    `json:"chapter_id"`
	UserID     string    `json:"user_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SubscriptionChanged fires when a billing event moves a user's tier.
type SubscriptionChanged struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Tier       string    `json:"tier"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEventID returns a fresh event identifier. The ID doubles as the
// message UUID so transports that deduplicate by message ID get
// exactly-once semantics for free.
func NewEventID() string {
	return uuid.New().String()
}

func marshalEvent(event interface{}) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func unmarshalEvent(data []byte, event interface{}) error {
	if err := json.Unmarshal(data, event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	return nil
}
