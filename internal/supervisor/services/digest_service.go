// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package services

import (
	"context"
)

// DigestScheduler matches *digest.Scheduler's blocking Serve method.
type DigestScheduler interface {
	Serve(ctx context.Context) error
}

// DigestSchedulerService runs the periodic sweep that releases
// scheduled chapters, expires lapsed subscriptions, and sends reading
// digests. The scheduler's bookkeeping makes restarts safe: a digest
// period that was already recorded is never sent twice.
type DigestSchedulerService struct {
	scheduler DigestScheduler
	name      string
}

// NewDigestSchedulerService creates a digest scheduler service wrapper.
func NewDigestSchedulerService(scheduler DigestScheduler) *DigestSchedulerService {
	return &DigestSchedulerService{
		scheduler: scheduler,
		name:      "digest-scheduler",
	}
}

// Serve implements suture.Service.
func (s *DigestSchedulerService) Serve(ctx context.Context) error {
	return s.scheduler.Serve(ctx)
}

// String implements fmt.Stringer for the supervisor's logs.
func (s *DigestSchedulerService) String() string {
	return s.name
}
