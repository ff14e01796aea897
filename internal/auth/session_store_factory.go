// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/logging"
)

// SessionStoreType defines the type of session storage backend.
type SessionStoreType string

const (
	// SessionStoreMemory uses in-memory storage (default, not persistent).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger uses BadgerDB for persistent session storage.
	SessionStoreBadger SessionStoreType = "badger"
)

// SessionStoreFactory creates session stores based on configuration.
type SessionStoreFactory struct {
	db *badger.DB
}

// NewSessionStoreFactory creates a session store factory from the security
// configuration. The badger backend opens a database at SessionStorePath;
// the memory backend opens nothing.
func NewSessionStoreFactory(cfg *config.SecurityConfig) (*SessionStoreFactory, error) {
	factory := &SessionStoreFactory{}

	if SessionStoreType(cfg.SessionStore) == SessionStoreBadger {
		opts := badger.DefaultOptions(cfg.SessionStorePath)
		opts.Logger = nil // Suppress BadgerDB logs

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for sessions: %w", err)
		}
		factory.db = db
	}

	return factory, nil
}

// CreateStore creates a SessionStore based on the factory's configuration.
func (f *SessionStoreFactory) CreateStore() SessionStore {
	if f.db != nil {
		return NewBadgerSessionStore(f.db)
	}
	return NewMemorySessionStore()
}

// Close closes the underlying BadgerDB if one was opened.
func (f *SessionStoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}

// StartSessionCleanup starts a background routine that removes expired
// sessions until the context is canceled.
func StartSessionCleanup(ctx context.Context, store SessionStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := store.CleanupExpired(ctx)
				if err != nil {
					logging.Error().Err(err).Msg("Session cleanup error")
					continue
				}
				if count > 0 {
					logging.Debug().Int("count", count).Msg("Cleaned up expired sessions")
				}
			}
		}
	}()
}
