// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"
)

// Bookmark represents a user's bookmark on a work, including reading progress.
// One bookmark per (user, work); re-bookmarking is a no-op.
type Bookmark struct {
	UserID            string    `json:"user_id"`
	WorkID            string    `json:"work_id"`
	LastChapterID     string    `json:"last_chapter_id,omitempty"`
	LastChapterNumber int       `json:"last_chapter_number,omitempty"`
	Notify            bool      `json:"notify"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LibraryEntry joins a bookmark with its work summary for the library view.
type LibraryEntry struct {
	Bookmark Bookmark `json:"bookmark"`
	Work     Work     `json:"work"`
	// UnreadChapters counts published chapters past the reading position.
	UnreadChapters int `json:"unread_chapters"`
}

// LibraryResponse wraps a page of library entries.
type LibraryResponse struct {
	Entries    []LibraryEntry `json:"entries"`
	Pagination PaginationInfo `json:"pagination"`
}

// UpdateProgressRequest sets the last read chapter on a bookmark.
type UpdateProgressRequest struct {
	ChapterID string `json:"chapter_id" validate:"required,uuid"`
}

// UpdateNotifyRequest toggles new-chapter notifications on a bookmark.
type UpdateNotifyRequest struct {
	Notify bool `json:"notify"`
}

// Rating represents a user's score and optional review for a work.
// One rating per (user, work); a second write replaces the first and
// the work's aggregates are adjusted by the delta in the same transaction.
type Rating struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	WorkID    string    `json:"work_id"`
	Score     int       `json:"score"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RateWorkRequest represents a rating upsert.
type RateWorkRequest struct {
	Score  int    `json:"score" validate:"required,min=1,max=5"`
	Review string `json:"review,omitempty" validate:"max=10000"`
}

// RatingListResponse wraps a page of reviews (ratings with review text).
type RatingListResponse struct {
	Ratings    []Rating       `json:"ratings"`
	Pagination PaginationInfo `json:"pagination"`
}

// Comment status constants.
const (
	// CommentStatusVisible is the normal state.
	CommentStatusVisible = "visible"

	// CommentStatusRemoved hides the body; the row stays for thread shape.
	CommentStatusRemoved = "removed"
)

// Comment represents a comment on a chapter. Threading is one level deep:
// a reply's parent must be a root comment on the same chapter.
type Comment struct {
	ID        string    `json:"id"`
	ChapterID string    `json:"chapter_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	ParentID  string    `json:"parent_id,omitempty"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest represents a new comment or reply.
type CreateCommentRequest struct {
	Body     string `json:"body" validate:"required,min=1,max=10000"`
	ParentID string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
}

// CommentListResponse wraps a page of comments.
type CommentListResponse struct {
	Comments   []Comment      `json:"comments"`
	Pagination PaginationInfo `json:"pagination"`
}
