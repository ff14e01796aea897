// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSubject() *Subject {
	return &Subject{
		UserID:   "user-1",
		Username: "inkwell",
		Role:     "author",
		Tier:     "supporter",
		Provider: ProviderLocal,
	}
}

func TestNewSession(t *testing.T) {
	subject := testSubject()
	session := NewSession(subject, time.Hour)

	if session.ID == "" {
		t.Error("session ID is empty")
	}
	if session.UserID != subject.UserID {
		t.Errorf("UserID = %q, want %q", session.UserID, subject.UserID)
	}
	if session.Role != subject.Role {
		t.Errorf("Role = %q, want %q", session.Role, subject.Role)
	}
	if session.IsExpired() {
		t.Error("fresh session reports expired")
	}

	got := session.Subject()
	if got.SessionID != session.ID {
		t.Errorf("Subject().SessionID = %q, want %q", got.SessionID, session.ID)
	}
	if got.Tier != subject.Tier {
		t.Errorf("Subject().Tier = %q, want %q", got.Tier, subject.Tier)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateSessionID()
		if seen[id] {
			t.Fatalf("duplicate session ID %q", id)
		}
		seen[id] = true
	}
}

func TestMemorySessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	session := NewSession(testSubject(), time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Username != session.Username {
		t.Errorf("Username = %q, want %q", got.Username, session.Username)
	}

	// Returned session is a copy; mutating it must not affect the store.
	got.Username = "mutated"
	again, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Username != session.Username {
		t.Error("store returned a shared session pointer")
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}

	// Delete is idempotent.
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	session := NewSession(testSubject(), -time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Get() expired session error = %v, want ErrSessionExpired", err)
	}

	count, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", count)
	}

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after cleanup error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStorePerUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	first := NewSession(testSubject(), time.Hour)
	second := NewSession(testSubject(), time.Hour)
	other := NewSession(&Subject{UserID: "user-2", Username: "margin"}, time.Hour)

	for _, session := range []*Session{first, second, other} {
		if err := store.Create(ctx, session); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	sessions, err := store.GetByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("GetByUserID() returned %d sessions, want 2", len(sessions))
	}

	count, err := store.DeleteByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteByUserID() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByUserID() = %d, want 2", count)
	}

	// The other user's session survives.
	if _, err := store.Get(ctx, other.ID); err != nil {
		t.Errorf("Get() other user's session error = %v", err)
	}
}

func TestMemorySessionStoreTouch(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	session := NewSession(testSubject(), time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newExpiry := time.Now().Add(2 * time.Hour)
	if err := store.Touch(ctx, session.ID, newExpiry); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.ExpiresAt.Equal(newExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, newExpiry)
	}

	if err := store.Touch(ctx, "missing", newExpiry); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Touch() missing session error = %v, want ErrSessionNotFound", err)
	}
}
