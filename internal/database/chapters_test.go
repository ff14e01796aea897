// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/models"
)

func TestCreateChapterAssignsNumbersAndCounters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "serializer")
	work := insertTestWork(t, db, author.ID, "Serial", "serial")

	c1 := insertTestChapter(t, db, work.ID, "First", 1000)
	c2 := insertTestChapter(t, db, work.ID, "Second", 2000)

	if c1.Number != 1 || c2.Number != 2 {
		t.Errorf("chapter numbers = (%d, %d), want (1, 2)", c1.Number, c2.Number)
	}

	got, err := db.GetWorkByID(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetWorkByID failed: %v", err)
	}
	if got.ChapterCount != 2 {
		t.Errorf("ChapterCount = %d, want 2", got.ChapterCount)
	}
	if got.WordCount != 3000 {
		t.Errorf("WordCount = %d, want 3000", got.WordCount)
	}
}

func TestGetChapterByNumber(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "numberer")
	work := insertTestWork(t, db, author.ID, "Numbered", "numbered")
	created := insertTestChapter(t, db, work.ID, "Chapter One", 100)

	got, err := db.GetChapterByNumber(ctx, work.ID, 1)
	if err != nil {
		t.Fatalf("GetChapterByNumber failed: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Error("GetChapterByNumber did not return the created chapter")
	}
}

func TestUpdateChapterAdjustsWordCount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "reviser")
	work := insertTestWork(t, db, author.ID, "Revised", "revised")
	chapter := insertTestChapter(t, db, work.ID, "Rough", 1000)

	chapter.Title = "Polished"
	chapter.WordCount = 1500
	if err := db.UpdateChapter(ctx, chapter); err != nil {
		t.Fatalf("UpdateChapter failed: %v", err)
	}

	got, err := db.GetWorkByID(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetWorkByID failed: %v", err)
	}
	if got.WordCount != 1500 {
		t.Errorf("work WordCount = %d, want 1500", got.WordCount)
	}

	updated, err := db.GetChapterByID(ctx, chapter.ID)
	if err != nil {
		t.Fatalf("GetChapterByID failed: %v", err)
	}
	if updated.Title != "Polished" {
		t.Errorf("Title = %q, want Polished", updated.Title)
	}
}

func TestListChaptersPublishedOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "drafter")
	work := insertTestWork(t, db, author.ID, "Mixed", "mixed")

	insertTestChapter(t, db, work.ID, "Published", 100)

	now := time.Now()
	draft := &models.Chapter{
		ID:        uuid.New().String(),
		WorkID:    work.ID,
		Title:     "Draft",
		Body:      "wip",
		Status:    models.ChapterStatusDraft,
		MinTier:   models.TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateChapter(ctx, draft); err != nil {
		t.Fatalf("CreateChapter(draft) failed: %v", err)
	}

	all, err := db.ListChapters(ctx, work.ID, false)
	if err != nil {
		t.Fatalf("ListChapters(all) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	published, err := db.ListChapters(ctx, work.ID, true)
	if err != nil {
		t.Fatalf("ListChapters(published) failed: %v", err)
	}
	if len(published) != 1 || published[0].Title != "Published" {
		t.Errorf("published = %+v, want only the published chapter", published)
	}
}

func TestPublishChapterImmediateAndScheduled(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "scheduler")
	work := insertTestWork(t, db, author.ID, "Scheduled", "scheduled")

	now := time.Now()
	draft := &models.Chapter{
		ID:        uuid.New().String(),
		WorkID:    work.ID,
		Title:     "Soon",
		Body:      "text",
		Status:    models.ChapterStatusDraft,
		MinTier:   models.TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateChapter(ctx, draft); err != nil {
		t.Fatalf("CreateChapter failed: %v", err)
	}

	future := now.Add(24 * time.Hour)
	if err := db.PublishChapter(ctx, draft.ID, &future); err != nil {
		t.Fatalf("PublishChapter(scheduled) failed: %v", err)
	}

	got, err := db.GetChapterByID(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetChapterByID failed: %v", err)
	}
	if got.Status != models.ChapterStatusScheduled {
		t.Errorf("Status = %q, want scheduled", got.Status)
	}
	if got.ScheduledFor == nil {
		t.Error("ScheduledFor not set")
	}

	// Publish now overrides the schedule
	if err := db.PublishChapter(ctx, draft.ID, nil); err != nil {
		t.Fatalf("PublishChapter(immediate) failed: %v", err)
	}

	got, err = db.GetChapterByID(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetChapterByID failed: %v", err)
	}
	if !got.IsPublished() {
		t.Errorf("Status = %q, want published", got.Status)
	}
	if got.PublishedAt == nil {
		t.Error("PublishedAt not stamped")
	}
	if got.ScheduledFor != nil {
		t.Error("ScheduledFor should be cleared on immediate publish")
	}
}

func TestListDueScheduledChapters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "due")
	work := insertTestWork(t, db, author.ID, "Due Work", "due-work")

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	for i, scheduledFor := range []time.Time{past, future} {
		chapter := &models.Chapter{
			ID:           uuid.New().String(),
			WorkID:       work.ID,
			Title:        "Sched",
			Body:         "text",
			Status:       models.ChapterStatusScheduled,
			MinTier:      models.TierFree,
			ScheduledFor: &scheduledFor,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := db.CreateChapter(ctx, chapter); err != nil {
			t.Fatalf("CreateChapter(%d) failed: %v", i, err)
		}
	}

	due, err := db.ListDueScheduledChapters(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDueScheduledChapters failed: %v", err)
	}
	if len(due) != 1 {
		t.Errorf("len(due) = %d, want 1 (only the past-due chapter)", len(due))
	}
}

func TestDeleteChapterAdjustsCounters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	author := insertTestUser(t, db, "trimmer")
	work := insertTestWork(t, db, author.ID, "Trimmed", "trimmed")

	insertTestChapter(t, db, work.ID, "Keep", 1000)
	doomed := insertTestChapter(t, db, work.ID, "Cut", 2000)

	if err := db.DeleteChapter(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteChapter failed: %v", err)
	}

	got, err := db.GetWorkByID(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetWorkByID failed: %v", err)
	}
	if got.ChapterCount != 1 {
		t.Errorf("ChapterCount = %d, want 1", got.ChapterCount)
	}
	if got.WordCount != 1000 {
		t.Errorf("WordCount = %d, want 1000", got.WordCount)
	}
}
