// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package auth provides credential verification, JWT issuance, server-side
// sessions, and login lockout for Paperbound accounts.
package auth

import (
	"context"
	"errors"
)

// Standard authentication errors.
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountSuspended indicates the account exists but is suspended.
	ErrAccountSuspended = errors.New("account suspended")

	// ErrAccountLocked is returned when authentication is blocked due to lockout.
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed attempts")

	// ErrUsernameTaken indicates the requested username is already registered.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken indicates the requested email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWeakPassword indicates the password failed the strength policy.
	// The wrapped message lists the failed requirements.
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// Provider names record which mechanism authenticated a session.
const (
	ProviderLocal = "local"
	ProviderOIDC  = "oidc"
)

// Subject is the authenticated identity attached to a request context.
// It normalizes JWT claims and session state into the fields the rest of
// the application cares about.
type Subject struct {
	// UserID is the account's unique identifier.
	UserID string `json:"user_id"`

	// Username is the human-readable username.
	Username string `json:"username"`

	// Role is the account role: reader, author, moderator, or admin.
	Role string `json:"role"`

	// Tier is the membership tier: free, supporter, or premium.
	Tier string `json:"tier"`

	// SessionID identifies the server-side session backing this subject.
	SessionID string `json:"session_id,omitempty"`

	// Provider is the mechanism that authenticated the subject.
	Provider string `json:"provider,omitempty"`
}

type contextKey string

// subjectContextKey stores the authenticated *Subject in request contexts.
const subjectContextKey contextKey = "auth-subject"

// ContextWithSubject returns a context carrying the authenticated subject.
func ContextWithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// SubjectFromContext extracts the authenticated subject from a context.
// Returns nil when the request was not authenticated.
func SubjectFromContext(ctx context.Context) *Subject {
	subject, ok := ctx.Value(subjectContextKey).(*Subject)
	if !ok {
		return nil
	}
	return subject
}
