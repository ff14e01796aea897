// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package services

import (
	"context"
	"time"

	"github.com/paperbound/paperbound/internal/logging"
)

// ExpiryStore matches the session store's CleanupExpired method.
type ExpiryStore interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// SessionCleanupService periodically removes expired sessions so the
// store does not accumulate dead entries between restarts.
type SessionCleanupService struct {
	store    ExpiryStore
	interval time.Duration
	name     string
}

// NewSessionCleanupService creates a session cleanup service. A zero
// interval defaults to one hour.
func NewSessionCleanupService(store ExpiryStore, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionCleanupService{
		store:    store,
		interval: interval,
		name:     "session-cleanup",
	}
}

// Serve implements suture.Service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := s.store.CleanupExpired(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Session cleanup error")
				continue
			}
			if count > 0 {
				logging.Info().Int("count", count).Msg("Cleaned up expired sessions")
			}
		}
	}
}

// String implements fmt.Stringer for the supervisor's logs.
func (s *SessionCleanupService) String() string {
	return s.name
}
