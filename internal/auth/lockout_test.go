// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"context"
	"testing"
	"time"
)

func TestLockoutAfterThreshold(t *testing.T) {
	ctx := context.Background()
	manager := NewLockoutManager(nil, 3, 15*time.Minute)

	for i := 0; i < 2; i++ {
		locked, _, err := manager.RecordFailedAttempt(ctx, "inkwell", "10.0.0.1", "test-agent")
		if err != nil {
			t.Fatalf("RecordFailedAttempt() error = %v", err)
		}
		if locked {
			t.Fatalf("locked after %d attempts, threshold is 3", i+1)
		}
	}

	locked, remaining, err := manager.RecordFailedAttempt(ctx, "inkwell", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("RecordFailedAttempt() error = %v", err)
	}
	if !locked {
		t.Fatal("not locked after reaching threshold")
	}
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Errorf("remaining = %v, want (0, 15m]", remaining)
	}

	locked, _, err = manager.CheckLocked(ctx, "inkwell")
	if err != nil {
		t.Fatalf("CheckLocked() error = %v", err)
	}
	if !locked {
		t.Error("CheckLocked() = false for a locked account")
	}

	// Other accounts are unaffected.
	locked, _, err = manager.CheckLocked(ctx, "margin")
	if err != nil {
		t.Fatalf("CheckLocked() error = %v", err)
	}
	if locked {
		t.Error("CheckLocked() = true for an untouched account")
	}
}

func TestSuccessfulLoginClearsFailures(t *testing.T) {
	ctx := context.Background()
	manager := NewLockoutManager(nil, 3, 15*time.Minute)

	for i := 0; i < 2; i++ {
		if _, _, err := manager.RecordFailedAttempt(ctx, "inkwell", "", ""); err != nil {
			t.Fatalf("RecordFailedAttempt() error = %v", err)
		}
	}

	if err := manager.RecordSuccessfulLogin(ctx, "inkwell"); err != nil {
		t.Fatalf("RecordSuccessfulLogin() error = %v", err)
	}

	// The counter restarted; two more failures must not lock.
	for i := 0; i < 2; i++ {
		locked, _, err := manager.RecordFailedAttempt(ctx, "inkwell", "", "")
		if err != nil {
			t.Fatalf("RecordFailedAttempt() error = %v", err)
		}
		if locked {
			t.Fatal("locked even though the counter was cleared")
		}
	}
}

func TestClearLockoutUnlocks(t *testing.T) {
	ctx := context.Background()
	manager := NewLockoutManager(nil, 1, time.Hour)

	locked, _, err := manager.RecordFailedAttempt(ctx, "inkwell", "", "")
	if err != nil {
		t.Fatalf("RecordFailedAttempt() error = %v", err)
	}
	if !locked {
		t.Fatal("not locked with threshold 1")
	}

	if err := manager.ClearLockout(ctx, "inkwell"); err != nil {
		t.Fatalf("ClearLockout() error = %v", err)
	}

	locked, _, err = manager.CheckLocked(ctx, "inkwell")
	if err != nil {
		t.Fatalf("CheckLocked() error = %v", err)
	}
	if locked {
		t.Error("still locked after ClearLockout()")
	}
}

func TestLockoutDisabledWithZeroThreshold(t *testing.T) {
	ctx := context.Background()
	manager := NewLockoutManager(nil, 0, time.Hour)

	for i := 0; i < 10; i++ {
		locked, _, err := manager.RecordFailedAttempt(ctx, "inkwell", "", "")
		if err != nil {
			t.Fatalf("RecordFailedAttempt() error = %v", err)
		}
		if locked {
			t.Fatal("locked with lockout disabled")
		}
	}
}

func TestMemoryLockoutStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockoutStore()

	stale := &LockoutEntry{
		Subject:     "stale",
		LastAttempt: time.Now().Add(-48 * time.Hour),
	}
	fresh := &LockoutEntry{
		Subject:     "fresh",
		LastAttempt: time.Now(),
	}
	locked := &LockoutEntry{
		Subject:     "locked",
		LastAttempt: time.Now().Add(-48 * time.Hour),
		LockedUntil: time.Now().Add(time.Hour),
	}

	for _, entry := range []*LockoutEntry{stale, fresh, locked} {
		if err := store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("SaveEntry() error = %v", err)
		}
	}

	count, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", count)
	}

	if _, err := store.GetEntry(ctx, "stale"); err == nil {
		t.Error("stale entry survived cleanup")
	}
	if _, err := store.GetEntry(ctx, "fresh"); err != nil {
		t.Errorf("fresh entry removed by cleanup: %v", err)
	}
	if _, err := store.GetEntry(ctx, "locked"); err != nil {
		t.Errorf("locked entry removed by cleanup: %v", err)
	}
}
