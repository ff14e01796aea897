// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package models

import (
	"time"
)

// Work kind constants.
const (
	// WorkKindStory is prose fiction: chapters carry a markdown body.
	WorkKindStory = "story"

	// WorkKindComic is sequential art: chapters carry ordered page images.
	WorkKindComic = "comic"
)

// Work status constants.
const (
	// WorkStatusDraft is visible only to the author and moderators.
	WorkStatusDraft = "draft"

	// WorkStatusPublished is publicly browsable.
	WorkStatusPublished = "published"

	// WorkStatusArchived is read-only; no new chapters may be published.
	WorkStatusArchived = "archived"
)

// ValidWorkKinds contains all valid work kinds.
var ValidWorkKinds = []string{WorkKindStory, WorkKindComic}

// IsValidWorkKind checks if a kind is valid.
func IsValidWorkKind(kind string) bool {
	return kind == WorkKindStory || kind == WorkKindComic
}

// Work represents a serialized story or comic.
//
// Rating aggregates (RatingSum, RatingCount) are maintained transactionally
// with rating writes so the average is always computable without a scan.
// BookmarkCount mirrors the bookmark rows for the work.
type Work struct {
	ID             string     `json:"id"`
	AuthorID       string     `json:"author_id"`
	AuthorUsername string     `json:"author_username,omitempty"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Kind           string     `json:"kind"`
	Summary        string     `json:"summary,omitempty"`
	Genres         []string   `json:"genres,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Status         string     `json:"status"`
	CoverPath      string     `json:"cover_path,omitempty"`
	MinTier        string     `json:"min_tier"`
	RatingSum      int64      `json:"-"`
	RatingCount    int64      `json:"rating_count"`
	BookmarkCount  int64      `json:"bookmark_count"`
	ViewCount      int64      `json:"view_count"`
	WordCount      int64      `json:"word_count"`
	ChapterCount   int64      `json:"chapter_count"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AverageRating returns the mean score, or 0 when unrated.
func (w *Work) AverageRating() float64 {
	if w.RatingCount == 0 {
		return 0
	}
	return float64(w.RatingSum) / float64(w.RatingCount)
}

// IsPublished reports whether the work is publicly visible.
func (w *Work) IsPublished() bool {
	return w.Status == WorkStatusPublished
}

// Chapter status constants.
const (
	// ChapterStatusDraft is visible only to the author and moderators.
	ChapterStatusDraft = "draft"

	// ChapterStatusPublished is readable by anyone meeting the tier gate.
	ChapterStatusPublished = "published"

	// ChapterStatusScheduled publishes automatically at ScheduledFor.
	ChapterStatusScheduled = "scheduled"
)

// Chapter represents one installment of a work.
// Story chapters carry Body (markdown); comic chapters carry Pages
// (ordered media paths). MinTier gates early access for members.
type Chapter struct {
	ID           string     `json:"id"`
	WorkID       string     `json:"work_id"`
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Body         string     `json:"body,omitempty"`
	Pages        []string   `json:"pages,omitempty"`
	Status       string     `json:"status"`
	MinTier      string     `json:"min_tier"`
	WordCount    int64      `json:"word_count"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsPublished reports whether the chapter is published.
func (c *Chapter) IsPublished() bool {
	return c.Status == ChapterStatusPublished
}

// ChapterSummary is the list form of a chapter: no body or pages.
type ChapterSummary struct {
	ID          string     `json:"id"`
	WorkID      string     `json:"work_id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	MinTier     string     `json:"min_tier"`
	WordCount   int64      `json:"word_count"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// CreateWorkRequest represents a request to create a draft work.
type CreateWorkRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200"`
	Kind    string   `json:"kind" validate:"required,oneof=story comic"`
	Summary string   `json:"summary,omitempty" validate:"max=5000"`
	Genres  []string `json:"genres,omitempty" validate:"max=5,dive,min=1,max=40"`
	Tags    []string `json:"tags,omitempty" validate:"max=20,dive,min=1,max=40"`
	MinTier string   `json:"min_tier,omitempty" validate:"omitempty,tier"`
}

// UpdateWorkRequest represents a partial update to a work.
type UpdateWorkRequest struct {
	Title   *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Summary *string   `json:"summary,omitempty" validate:"omitempty,max=5000"`
	Genres  *[]string `json:"genres,omitempty" validate:"omitempty,max=5,dive,min=1,max=40"`
	Tags    *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=40"`
	MinTier *string   `json:"min_tier,omitempty" validate:"omitempty,tier"`
}

// CreateChapterRequest represents a request to create a draft chapter.
// The chapter number is assigned automatically.
type CreateChapterRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Body    string `json:"body,omitempty" validate:"max=1000000"`
	MinTier string `json:"min_tier,omitempty" validate:"omitempty,tier"`
}

// UpdateChapterRequest represents a partial update to a chapter.
type UpdateChapterRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Body    *string `json:"body,omitempty" validate:"omitempty,max=1000000"`
	MinTier *string `json:"min_tier,omitempty" validate:"omitempty,tier"`
}

// PublishChapterRequest optionally schedules the publish for a future time.
type PublishChapterRequest struct {
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// WorkListFilter holds browse filters for work listings.
type WorkListFilter struct {
	Kind     string
	Genre    string
	Tag      string
	AuthorID string
	Status   string
	Query    string
	Sort     string // updated, rating, bookmarks, views, trending
	Offset   int
	Limit    int
}

// Work list sort constants.
const (
	WorkSortUpdated   = "updated"
	WorkSortRating    = "rating"
	WorkSortBookmarks = "bookmarks"
	WorkSortViews     = "views"
	WorkSortTrending  = "trending"
)

// IsValidWorkSort checks if a sort key is valid.
func IsValidWorkSort(sort string) bool {
	switch sort {
	case WorkSortUpdated, WorkSortRating, WorkSortBookmarks, WorkSortViews, WorkSortTrending:
		return true
	}
	return false
}

// WorkListResponse wraps a page of works.
type WorkListResponse struct {
	Works      []Work         `json:"works"`
	Pagination PaginationInfo `json:"pagination"`
}

// ChapterListResponse wraps the chapter list of a work.
type ChapterListResponse struct {
	Chapters []ChapterSummary `json:"chapters"`
}

// TermCount is a tag or genre with its usage count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}
