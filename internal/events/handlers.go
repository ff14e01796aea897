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
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/metrics"
	"github.com/paperbound/paperbound/internal/models"
)

// NotificationStore is the slice of the database the handlers need.
type NotificationStore interface {
	ListNotifySubscribers(ctx context.Context, workID, excludeUserID string) ([]string, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
}

// Pusher delivers a payload to a connected user's websocket feed.
// Delivery is best-effort; offline users read the notification from
// their inbox later.
type Pusher interface {
	SendToUser(userID string, payload []byte)
}

// Handlers holds the event consumers registered on the router.
type Handlers struct {
	store  NotificationStore
	pusher Pusher
}

// NewHandlers creates the router handler set. pusher may be nil when
// no websocket hub is running (tests, CLI tools).
func NewHandlers(store NotificationStore, pusher Pusher) *Handlers {
	return &Handlers{store: store, pusher: pusher}
}

// Register installs all consumers on the router.
func (h *Handlers) Register(r *Router) {
	r.AddConsumerHandler("chapter-fanout", TopicChapterPublished, h.HandleChapterPublished)
	r.AddConsumerHandler("rating-notify", TopicRatingCreated, h.HandleRatingCreated)
	r.AddConsumerHandler("comment-reply-notify", TopicCommentCreated, h.HandleCommentCreated)
}

// HandleChapterPublished fans a chapter release out to every reader who
// bookmarked the work with notifications enabled: one inbox notification
// per reader, plus a live websocket push for anyone connected.
func (h *Handlers) HandleChapterPublished(msg *message.Message) error {
	start := time.Now()
	ctx := msg.Context()

	var event ChapterPublished
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		// A payload that never parses will never parse; don't retry it.
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed chapter.published event")
		metrics.RecordEventProcessed(TopicChapterPublished, "chapter-fanout", time.Since(start), err)
		return nil
	}

	err := h.fanOutChapter(ctx, &event)
	metrics.RecordEventProcessed(TopicChapterPublished, "chapter-fanout", time.Since(start), err)
	return err
}

func (h *Handlers) fanOutChapter(ctx context.Context, event *ChapterPublished) error {
	subscribers, err := h.store.ListNotifySubscribers(ctx, event.WorkID, event.AuthorID)
	if err != nil {
		return fmt.Errorf("list notify subscribers for work %s: %w", event.WorkID, err)
	}
	if len(subscribers) == 0 {
		return nil
	}

	payload, err := marshalEvent(models.ChapterPublishedPayload{
		WorkID:        event.WorkID,
		WorkTitle:     event.WorkTitle,
		ChapterID:     event.ChapterID,
		ChapterNumber: event.ChapterNumber,
		ChapterTitle:  event.ChapterTitle,
	})
	if err != nil {
		return err
	}

	now := time.Now()
	notifications := make([]models.Notification, len(subscribers))
	for i, userID := range subscribers {
		notifications[i] = models.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      models.NotificationChapterPublished,
			Payload:   string(payload),
			CreatedAt: now,
		}
	}

	if err := h.store.CreateNotifications(ctx, notifications); err != nil {
		return fmt.Errorf("create chapter notifications: %w", err)
	}

	h.push(subscribers, models.NotificationChapterPublished, payload)

	logging.Info().
		Str("work_id", event.WorkID).
		Str("chapter_id", event.ChapterID).
		Int("recipients", len(subscribers)).
		Msg("Chapter release fanned out")
	return nil
}

// HandleRatingCreated notifies the work's author of a new rating.
func (h *Handlers) HandleRatingCreated(msg *message.Message) error {
	start := time.Now()
	ctx := msg.Context()

	var event RatingCreated
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed rating.created event")
		metrics.RecordEventProcessed(TopicRatingCreated, "rating-notify", time.Since(start), err)
		return nil
	}

	err := h.notifyAuthorOfRating(ctx, &event)
	metrics.RecordEventProcessed(TopicRatingCreated, "rating-notify", time.Since(start), err)
	return err
}

func (h *Handlers) notifyAuthorOfRating(ctx context.Context, event *RatingCreated) error {
	// Authors rating their own work is filtered at the API layer, but
	// a stray self-rating should not self-notify.
	if event.AuthorID == "" || event.AuthorID == event.UserID {
		return nil
	}

	payload, err := marshalEvent(map[string]interface{}{
		"work_id":    event.WorkID,
		"work_title": event.WorkTitle,
		"stars":      event.Stars,
	})
	if err != nil {
		return err
	}

	notification := models.Notification{
		ID:        uuid.New().String(),
		UserID:    event.AuthorID,
		Type:      models.NotificationWorkRated,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateNotification(ctx, &notification); err != nil {
		return fmt.Errorf("create rating notification: %w", err)
	}

	h.push([]string{event.AuthorID}, models.NotificationWorkRated, payload)
	return nil
}

// HandleCommentCreated notifies the parent comment's author of a reply.
func (h *Handlers) HandleCommentCreated(msg *message.Message) error {
	start := time.Now()
	ctx := msg.Context()

	var event CommentCreated
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed comment.created event")
		metrics.RecordEventProcessed(TopicCommentCreated, "comment-reply-notify", time.Since(start), err)
		return nil
	}

	err := h.notifyParentOfReply(ctx, &event)
	metrics.RecordEventProcessed(TopicCommentCreated, "comment-reply-notify", time.Since(start), err)
	return err
}

func (h *Handlers) notifyParentOfReply(ctx context.Context, event *CommentCreated) error {
	if event.ParentID == "" {
		return nil // Root comments notify nobody
	}

	parent, err := h.store.GetCommentByID(ctx, event.ParentID)
	if err != nil {
		return fmt.Errorf("load parent comment %s: %w", event.ParentID, err)
	}
	if parent == nil || parent.UserID == event.UserID {
		return nil
	}

	payload, err := marshalEvent(map[string]interface{}{
		"chapter_id": event.ChapterID,
		"comment_id": event.CommentID,
		"parent_id":  event.ParentID,
	})
	if err != nil {
		return err
	}

	notification := models.Notification{
		ID:        uuid.New().String(),
		UserID:    parent.UserID,
		Type:      models.NotificationCommentReply,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateNotification(ctx, &notification); err != nil {
		return fmt.Errorf("create reply notification: %w", err)
	}

	h.push([]string{parent.UserID}, models.NotificationCommentReply, payload)
	return nil
}

// push delivers a live notification frame to each user's feed.
func (h *Handlers) push(userIDs []string, notificationType string, payload []byte) {
	if h.pusher == nil {
		return
	}

	frame, err := marshalEvent(map[string]interface{}{
		"type":    notificationType,
		"payload": json.RawMessage(payload),
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode websocket frame")
		return
	}

	for _, userID := range userIDs {
		h.pusher.SendToUser(userID, frame)
	}
}
