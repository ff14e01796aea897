// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"
)

// Notification type constants.
const (
	// NotificationChapterPublished fires for bookmarkers with notify enabled.
	NotificationChapterPublished = "chapter_published"

	// NotificationCommentReply fires when someone replies to your comment.
	NotificationCommentReply = "comment_reply"

	// NotificationWorkRated fires for the author on a new rating.
	NotificationWorkRated = "work_rated"

	// NotificationDigest is the periodic reading digest.
	NotificationDigest = "digest"

	// NotificationModeration informs a user of a moderation action.
	NotificationModeration = "moderation"
)

// Notification represents a message delivered to a user's inbox.
// Payload is a type-specific JSON document (work/chapter ids, titles).
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Payload   string     `json:"payload,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsRead reports whether the notification has been read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// NotificationListResponse wraps a page of notifications.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
	Pagination    PaginationInfo `json:"pagination"`
}

// MarkNotificationsReadRequest marks notifications as read.
// An empty ID list marks everything read.
type MarkNotificationsReadRequest struct {
	IDs []string `json:"ids,omitempty" validate:"omitempty,max=100,dive,uuid"`
}

// ChapterPublishedPayload is the payload for chapter_published notifications.
type ChapterPublishedPayload struct {
	WorkID        string `json:"work_id"`
	WorkTitle     string `json:"work_title"`
	ChapterID     string `json:"chapter_id"`
	ChapterNumber int    `json:"chapter_number"`
	ChapterTitle  string `json:"chapter_title"`
}

// ModerationPayload is the payload for moderation notifications.
type ModerationPayload struct {
	Action     string `json:"action"`
	TargetType string `json:"target_type,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DigestPayload is the payload for digest notifications.
type DigestPayload struct {
	Since time.Time    `json:"since"`
	Works []DigestWork `json:"works"`
}

// DigestWork summarizes one bookmarked work's new chapters in a digest.
type DigestWork struct {
	WorkID      string `json:"work_id"`
	WorkTitle   string `json:"work_title"`
	NewChapters int    `json:"new_chapters"`
}
