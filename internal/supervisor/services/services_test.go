// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// fakeHTTPServer implements HTTPServer with controllable behavior.
type fakeHTTPServer struct {
	serveErr   error
	shutdownCh chan struct{}
	shutdowns  atomic.Int32
}

func newFakeHTTPServer(serveErr error) *fakeHTTPServer {
	return &fakeHTTPServer{
		serveErr:   serveErr,
		shutdownCh: make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.shutdownCh
	return errors.New("http: Server closed")
}

func (f *fakeHTTPServer) Shutdown(_ context.Context) error {
	f.shutdowns.Add(1)
	close(f.shutdownCh)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newFakeHTTPServer(nil)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if got := srv.shutdowns.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	srv := newFakeHTTPServer(errors.New("listen tcp: address already in use"))
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve returned nil for a failed listener")
	}
}

func TestHTTPServerServiceDefaultTimeout(t *testing.T) {
	svc := NewHTTPServerService(newFakeHTTPServer(nil), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s default", svc.shutdownTimeout)
	}
}

// fakeHub implements ContextHub.
type fakeHub struct {
	runs atomic.Int32
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubServiceDelegates(t *testing.T) {
	hub := &fakeHub{}
	svc := NewWebSocketHubService(hub)

	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
	if hub.runs.Load() != 1 {
		t.Error("RunWithContext not called")
	}
}

// fakeRouter implements EventRouter.
type fakeRouter struct{}

func (f *fakeRouter) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestEventRouterServiceDelegates(t *testing.T) {
	svc := NewEventRouterService(&fakeRouter{})
	if svc.String() != "event-router" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

// fakeExpiryStore implements ExpiryStore.
type fakeExpiryStore struct {
	sweeps atomic.Int32
	err    error
}

func (f *fakeExpiryStore) CleanupExpired(_ context.Context) (int, error) {
	f.sweeps.Add(1)
	return 3, f.err
}

func TestSessionCleanupServiceSweeps(t *testing.T) {
	store := &fakeExpiryStore{}
	svc := NewSessionCleanupService(store, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for store.sweeps.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected at least two sweeps within 2s")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

func TestSessionCleanupServiceSurvivesErrors(t *testing.T) {
	store := &fakeExpiryStore{err: errors.New("store offline")}
	svc := NewSessionCleanupService(store, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for store.sweeps.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("cleanup loop stopped after an error")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestSessionCleanupServiceDefaultInterval(t *testing.T) {
	svc := NewSessionCleanupService(&fakeExpiryStore{}, 0)
	if svc.interval != time.Hour {
		t.Errorf("interval = %v, want 1h default", svc.interval)
	}
}
