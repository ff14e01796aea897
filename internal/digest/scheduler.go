// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package digest runs the periodic background sweeps: releasing
// scheduled chapters whose publish time has arrived, expiring lapsed
// paid subscriptions, and writing the weekly reading digest to user
// inboxes.
//
// One Scheduler instance runs under the supervision tree. The digest
// step is single-flight by construction (one goroutine per process) and
// restart-safe through the digest_runs bookkeeping: a period that was
// already recorded is never sent again.
package digest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/database"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/metrics"
	"github.com/paperbound/paperbound/internal/models"

	"github.com/goccy/go-json"
)

// releaseBatchSize bounds how many due chapters one sweep releases.
// Anything left over is picked up on the next tick.
const releaseBatchSize = 50

// Store defines the database operations the scheduler needs.
type Store interface {
	ListDueScheduledChapters(ctx context.Context, now time.Time, limit int) ([]models.Chapter, error)
	PublishChapter(ctx context.Context, chapterID string, scheduledFor *time.Time) error
	GetWorkByID(ctx context.Context, id string) (*models.Work, error)

	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int, error)

	LastDigestRun(ctx context.Context) (time.Time, error)
	ListDigestCandidates(ctx context.Context, since time.Time, batchSize int) ([]database.DigestCandidate, error)
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	RecordDigestRun(ctx context.Context, periodStart time.Time, usersNotified int) error
}

// EventPublisher publishes chapter release events so the notification
// fan-out treats scheduled releases exactly like manual ones.
type EventPublisher interface {
	ChapterPublished(event *events.ChapterPublished) error
}

// Pusher delivers digest frames to connected clients. May be nil when
// no live feed is wired.
type Pusher interface {
	SendToUser(userID string, payload []byte)
}

// Scheduler runs the background sweeps on a fixed check interval.
type Scheduler struct {
	store     Store
	publisher EventPublisher
	pusher    Pusher
	cfg       config.DigestConfig
	now       func() time.Time
}

// NewScheduler creates a scheduler. publisher and pusher may be nil.
func NewScheduler(store Store, publisher EventPublisher, pusher Pusher, cfg config.DigestConfig) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.Period <= 0 {
		cfg.Period = 7 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}

	return &Scheduler{
		store:     store,
		publisher: publisher,
		pusher:    pusher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Serve runs the sweep loop until the context is canceled. Implements
// the supervision tree's service contract; the returned error is the
// context error so the supervisor treats cancellation as a clean stop.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Str("component", "digest-scheduler").
		Dur("check_interval", s.cfg.CheckInterval).
		Dur("period", s.cfg.Period).
		Bool("digest_enabled", s.cfg.Enabled).
		Msg("Starting background scheduler")

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start so a restart never waits a full
	// interval to release overdue chapters.
	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			logging.Info().
				Str("component", "digest-scheduler").
				Msg("Background scheduler stopped")
			return ctx.Err()
		}
	}
}

// Sweep runs one pass of all three background jobs. Exported so the
// admin API can trigger an out-of-band pass.
func (s *Scheduler) Sweep(ctx context.Context) {
	s.releaseDueChapters(ctx)
	s.expireLapsedSubscriptions(ctx)
	if s.cfg.Enabled {
		s.runDigest(ctx)
	}
}

// releaseDueChapters publishes scheduled chapters whose time has come
// and emits the same chapter.published event a manual publish does.
func (s *Scheduler) releaseDueChapters(ctx context.Context) {
	now := s.now()

	chapters, err := s.store.ListDueScheduledChapters(ctx, now, releaseBatchSize)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list due scheduled chapters")
		return
	}
	if len(chapters) == 0 {
		return
	}

	released := 0
	for i := range chapters {
		chapter := &chapters[i]
		if err := s.store.PublishChapter(ctx, chapter.ID, nil); err != nil {
			logging.Error().Err(err).
				Str("chapter_id", chapter.ID).
				Msg("Failed to release scheduled chapter")
			continue
		}
		released++

		var lag time.Duration
		if chapter.ScheduledFor != nil {
			lag = now.Sub(*chapter.ScheduledFor)
		}
		metrics.RecordChapterRelease("scheduled", lag)

		s.publishReleaseEvent(ctx, chapter, now)
	}

	logging.Info().
		Int("released", released).
		Int("due", len(chapters)).
		Msg("Scheduled chapter release sweep completed")
}

func (s *Scheduler) publishReleaseEvent(ctx context.Context, chapter *models.Chapter, now time.Time) {
	if s.publisher == nil {
		return
	}

	work, err := s.store.GetWorkByID(ctx, chapter.WorkID)
	if err != nil {
		logging.Error().Err(err).
			Str("work_id", chapter.WorkID).
			Str("chapter_id", chapter.ID).
			Msg("Failed to load work for release event")
		return
	}

	event := &events.ChapterPublished{
		EventID:       events.NewEventID(),
		WorkID:        work.ID,
		WorkTitle:     work.Title,
		AuthorID:      work.AuthorID,
		ChapterID:     chapter.ID,
		ChapterNumber: chapter.Number,
		ChapterTitle:  chapter.Title,
		MinTier:       chapter.MinTier,
		OccurredAt:    now,
	}
	if err := s.publisher.ChapterPublished(event); err != nil {
		logging.Error().Err(err).
			Str("chapter_id", chapter.ID).
			Msg("Failed to publish chapter release event")
	}
}

// expireLapsedSubscriptions drops users whose canceled subscription
// period has run out back to the free tier.
func (s *Scheduler) expireLapsedSubscriptions(ctx context.Context) {
	expired, err := s.store.ExpireLapsedSubscriptions(ctx, s.now())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to expire lapsed subscriptions")
		return
	}
	if expired > 0 {
		metrics.SubscriptionsLapsed.Add(float64(expired))
		logging.Info().Int("expired", expired).Msg("Lapsed subscriptions expired")
	}
}

// runDigest writes one digest notification per user whose bookmarked
// works gained chapters since the last recorded run. A run covering
// fewer than Period is skipped, so restarts within a period are no-ops.
func (s *Scheduler) runDigest(ctx context.Context) {
	start := s.now()

	last, err := s.store.LastDigestRun(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to read last digest run")
		metrics.RecordDigestRun(s.now().Sub(start), 0, err)
		return
	}

	if !last.IsZero() && start.Sub(last) < s.cfg.Period {
		return
	}

	since := last
	if since.IsZero() {
		since = start.Add(-s.cfg.Period)
	}

	candidates, err := s.store.ListDigestCandidates(ctx, since, s.cfg.BatchSize)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list digest candidates")
		metrics.RecordDigestRun(s.now().Sub(start), 0, err)
		return
	}

	notified, err := s.deliverDigests(ctx, since, candidates)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to deliver digests")
		metrics.RecordDigestRun(s.now().Sub(start), notified, err)
		return
	}

	if err := s.store.RecordDigestRun(ctx, since, notified); err != nil {
		logging.Error().Err(err).Msg("Failed to record digest run")
		metrics.RecordDigestRun(s.now().Sub(start), notified, err)
		return
	}

	metrics.RecordDigestRun(s.now().Sub(start), notified, nil)
	logging.Info().
		Int("users_notified", notified).
		Time("period_start", since).
		Msg("Reading digest run completed")
}

func (s *Scheduler) deliverDigests(ctx context.Context, since time.Time, candidates []database.DigestCandidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	now := s.now()
	notifications := make([]models.Notification, 0, len(candidates))
	for _, candidate := range candidates {
		payload, err := json.Marshal(models.DigestPayload{Since: since, Works: candidate.Works})
		if err != nil {
			return 0, err
		}
		notifications = append(notifications, models.Notification{
			ID:        uuid.New().String(),
			UserID:    candidate.UserID,
			Type:      models.NotificationDigest,
			Payload:   string(payload),
			CreatedAt: now,
		})
	}

	if err := s.store.CreateNotifications(ctx, notifications); err != nil {
		return 0, err
	}

	if s.pusher != nil {
		for i := range notifications {
			frame, err := json.Marshal(map[string]interface{}{
				"type":    models.NotificationDigest,
				"payload": json.RawMessage(notifications[i].Payload),
			})
			if err != nil {
				continue
			}
			s.pusher.SendToUser(notifications[i].UserID, frame)
		}
	}

	return len(notifications), nil
}
