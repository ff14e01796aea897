// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package digest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/database"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

type fakeStore struct {
	mu sync.Mutex

	dueChapters     []models.Chapter
	publishErr      error
	published       []string
	works           map[string]*models.Work
	expired         int
	expireErr       error
	lastRun         time.Time
	lastRunErr      error
	candidates      []database.DigestCandidate
	candidatesErr   error
	createErr       error
	created         []models.Notification
	recordedRuns    []time.Time
	recordedNotifed []int
}

func (f *fakeStore) ListDueScheduledChapters(_ context.Context, _ time.Time, _ int) ([]models.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dueChapters, nil
}

func (f *fakeStore) PublishChapter(_ context.Context, chapterID string, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, chapterID)
	return nil
}

func (f *fakeStore) GetWorkByID(_ context.Context, id string) (*models.Work, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	work, ok := f.works[id]
	if !ok {
		return nil, errors.New("work not found")
	}
	return work, nil
}

func (f *fakeStore) ExpireLapsedSubscriptions(_ context.Context, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired, f.expireErr
}

func (f *fakeStore) LastDigestRun(_ context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRun, f.lastRunErr
}

func (f *fakeStore) ListDigestCandidates(_ context.Context, _ time.Time, _ int) ([]database.DigestCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candidates, f.candidatesErr
}

func (f *fakeStore) CreateNotifications(_ context.Context, notifications []models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, notifications...)
	return nil
}

func (f *fakeStore) RecordDigestRun(_ context.Context, periodStart time.Time, usersNotified int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordedRuns = append(f.recordedRuns, periodStart)
	f.recordedNotifed = append(f.recordedNotifed, usersNotified)
	return nil
}

func (f *fakeStore) notifications() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, len(f.created))
	copy(out, f.created)
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.ChapterPublished
	err    error
}

func (f *fakePublisher) ChapterPublished(event *events.ChapterPublished) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakePusher struct {
	mu     sync.Mutex
	pushes map[string][][]byte
}

func (f *fakePusher) SendToUser(userID string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushes == nil {
		f.pushes = make(map[string][][]byte)
	}
	f.pushes[userID] = append(f.pushes[userID], payload)
}

func testConfig() config.DigestConfig {
	return config.DigestConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		Period:        7 * 24 * time.Hour,
		BatchSize:     200,
	}
}

func scheduledChapter(id string, scheduledFor time.Time) models.Chapter {
	return models.Chapter{
		ID:           id,
		WorkID:       "work-1",
		Number:       4,
		Title:        "The Ninth Bell Tolls",
		Status:       models.ChapterStatusScheduled,
		MinTier:      models.TierFree,
		ScheduledFor: &scheduledFor,
	}
}

func TestReleaseDueChapters(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		dueChapters: []models.Chapter{
			scheduledChapter("ch-1", now.Add(-5*time.Minute)),
			scheduledChapter("ch-2", now.Add(-time.Minute)),
		},
		works: map[string]*models.Work{
			"work-1": {ID: "work-1", Title: "The Clockwork Orchard", AuthorID: "author-1"},
		},
	}
	publisher := &fakePublisher{}

	s := NewScheduler(store, publisher, nil, testConfig())
	s.releaseDueChapters(context.Background())

	if len(store.published) != 2 {
		t.Fatalf("published = %v, want 2 chapters", store.published)
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if len(publisher.events) != 2 {
		t.Fatalf("events = %d, want 2", len(publisher.events))
	}
	event := publisher.events[0]
	if event.WorkTitle != "The Clockwork Orchard" {
		t.Errorf("WorkTitle = %q", event.WorkTitle)
	}
	if event.AuthorID != "author-1" {
		t.Errorf("AuthorID = %q", event.AuthorID)
	}
	if event.ChapterID != "ch-1" {
		t.Errorf("ChapterID = %q", event.ChapterID)
	}
	if event.EventID == "" {
		t.Error("EventID should be set")
	}
}

func TestReleaseDueChaptersPublishFailure(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		dueChapters: []models.Chapter{scheduledChapter("ch-1", now)},
		publishErr:  errors.New("db unavailable"),
		works:       map[string]*models.Work{},
	}
	publisher := &fakePublisher{}

	s := NewScheduler(store, publisher, nil, testConfig())
	s.releaseDueChapters(context.Background())

	if len(store.published) != 0 {
		t.Errorf("published = %v, want none", store.published)
	}
	if len(publisher.events) != 0 {
		t.Errorf("events = %d, want 0 when release fails", len(publisher.events))
	}
}

func TestReleaseDueChaptersNoEventPublisher(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		dueChapters: []models.Chapter{scheduledChapter("ch-1", now)},
		works:       map[string]*models.Work{},
	}

	// nil publisher must not panic
	s := NewScheduler(store, nil, nil, testConfig())
	s.releaseDueChapters(context.Background())

	if len(store.published) != 1 {
		t.Errorf("published = %v, want 1 chapter", store.published)
	}
}

func TestRunDigestFirstRun(t *testing.T) {
	store := &fakeStore{
		candidates: []database.DigestCandidate{
			{UserID: "reader-1", Works: []models.DigestWork{
				{WorkID: "work-1", WorkTitle: "The Clockwork Orchard", NewChapters: 3},
			}},
			{UserID: "reader-2", Works: []models.DigestWork{
				{WorkID: "work-2", WorkTitle: "Inkbound", NewChapters: 1},
			}},
		},
	}
	pusher := &fakePusher{}

	s := NewScheduler(store, nil, pusher, testConfig())
	s.runDigest(context.Background())

	created := store.notifications()
	if len(created) != 2 {
		t.Fatalf("notifications = %d, want 2", len(created))
	}
	if created[0].Type != models.NotificationDigest {
		t.Errorf("Type = %q, want %q", created[0].Type, models.NotificationDigest)
	}

	var payload models.DigestPayload
	if err := json.Unmarshal([]byte(created[0].Payload), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if len(payload.Works) != 1 || payload.Works[0].NewChapters != 3 {
		t.Errorf("unexpected digest payload: %+v", payload)
	}

	if len(store.recordedRuns) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(store.recordedRuns))
	}
	if store.recordedNotifed[0] != 2 {
		t.Errorf("users notified = %d, want 2", store.recordedNotifed[0])
	}

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	if len(pusher.pushes["reader-1"]) != 1 || len(pusher.pushes["reader-2"]) != 1 {
		t.Errorf("expected one push per recipient, got %v", pusher.pushes)
	}
}

func TestRunDigestSkipsWithinPeriod(t *testing.T) {
	store := &fakeStore{
		lastRun: time.Now().Add(-24 * time.Hour), // Period is 7 days
		candidates: []database.DigestCandidate{
			{UserID: "reader-1"},
		},
	}

	s := NewScheduler(store, nil, nil, testConfig())
	s.runDigest(context.Background())

	if len(store.notifications()) != 0 {
		t.Error("digest should be skipped within the period")
	}
	if len(store.recordedRuns) != 0 {
		t.Error("no run should be recorded when skipped")
	}
}

func TestRunDigestUsesLastRunAsPeriodStart(t *testing.T) {
	lastRun := time.Now().Add(-8 * 24 * time.Hour)
	store := &fakeStore{
		lastRun: lastRun,
		candidates: []database.DigestCandidate{
			{UserID: "reader-1", Works: []models.DigestWork{{WorkID: "work-1"}}},
		},
	}

	s := NewScheduler(store, nil, nil, testConfig())
	s.runDigest(context.Background())

	if len(store.recordedRuns) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(store.recordedRuns))
	}
	if !store.recordedRuns[0].Equal(lastRun) {
		t.Errorf("period start = %v, want last run %v", store.recordedRuns[0], lastRun)
	}
}

func TestRunDigestNoCandidates(t *testing.T) {
	store := &fakeStore{}

	s := NewScheduler(store, nil, nil, testConfig())
	s.runDigest(context.Background())

	if len(store.recordedRuns) != 1 {
		t.Fatalf("recorded runs = %d, want 1 (empty run still advances the period)", len(store.recordedRuns))
	}
	if store.recordedNotifed[0] != 0 {
		t.Errorf("users notified = %d, want 0", store.recordedNotifed[0])
	}
}

func TestRunDigestStoreFailureDoesNotRecord(t *testing.T) {
	store := &fakeStore{
		candidates: []database.DigestCandidate{{UserID: "reader-1"}},
		createErr:  errors.New("db unavailable"),
	}

	s := NewScheduler(store, nil, nil, testConfig())
	s.runDigest(context.Background())

	if len(store.recordedRuns) != 0 {
		t.Error("failed delivery must not record a run, so the period retries")
	}
}

func TestSweepDigestDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	store := &fakeStore{
		dueChapters: []models.Chapter{scheduledChapter("ch-due", time.Now().Add(-time.Minute))},
		works:       map[string]*models.Work{"work-1": {ID: "work-1", Title: "Still Running"}},
		candidates:  []database.DigestCandidate{{UserID: "reader-1"}},
		expired:     3,
	}

	s := NewScheduler(store, nil, nil, cfg)
	s.Sweep(context.Background())

	// Release and lapse sweeps still run; only the digest is skipped.
	if len(store.published) != 1 || store.published[0] != "ch-due" {
		t.Errorf("published = %v, want the due chapter released with the digest off", store.published)
	}
	if len(store.notifications()) != 0 {
		t.Error("digest should not run when disabled")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, nil, nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestNewSchedulerDefaults(t *testing.T) {
	s := NewScheduler(&fakeStore{}, nil, nil, config.DigestConfig{})

	if s.cfg.CheckInterval != time.Hour {
		t.Errorf("CheckInterval = %v, want 1h", s.cfg.CheckInterval)
	}
	if s.cfg.Period != 7*24*time.Hour {
		t.Errorf("Period = %v, want 168h", s.cfg.Period)
	}
	if s.cfg.BatchSize != 200 {
		t.Errorf("BatchSize = %d, want 200", s.cfg.BatchSize)
	}
}
