// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// oidcStateTTL bounds how long a login flow may sit between the redirect
// and the callback.
const oidcStateTTL = 10 * time.Minute

// ErrInvalidOIDCState is returned when a callback carries an unknown or
// expired state parameter.
var ErrInvalidOIDCState = errors.New("invalid or expired OIDC state")

// OIDCIdentity is the identity extracted from a verified ID token.
type OIDCIdentity struct {
	// Subject is the provider's stable identifier ('sub' claim).
	Subject string

	// Username is derived from the configured username claims.
	Username string

	// Email is the 'email' claim.
	Email string

	// EmailVerified is the 'email_verified' claim.
	EmailVerified bool
}

// OIDCClient wraps the certified Relying Party for the optional
// "sign in with provider" flow.
type OIDCClient struct {
	rp  rp.RelyingParty
	cfg config.OIDCConfig

	mu     sync.Mutex
	states map[string]time.Time
}

// NewOIDCClient performs OIDC discovery against the configured issuer and
// returns a ready client. The context bounds the discovery request.
func NewOIDCClient(ctx context.Context, cfg config.OIDCConfig) (*OIDCClient, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	options := []rp.Option{
		rp.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if cfg.PKCEEnabled {
		options = append(options, rp.WithPKCE(nil))
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.IssuerURL,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.RedirectURL,
		scopes,
		options...,
	)
	if err != nil {
		return nil, fmt.Errorf("create relying party: %w", err)
	}

	return &OIDCClient{
		rp:     relyingParty,
		cfg:    cfg,
		states: make(map[string]time.Time),
	}, nil
}

// AuthURL returns the provider's authorization URL with a fresh state
// parameter. The state is remembered until the callback or expiry.
func (c *OIDCClient) AuthURL() (authURL, state string) {
	state = generateSessionID()

	c.mu.Lock()
	c.pruneStatesLocked()
	c.states[state] = time.Now().Add(oidcStateTTL)
	c.mu.Unlock()

	return rp.AuthURL(state, c.rp), state
}

// Exchange validates the callback state and exchanges the authorization
// code for a verified identity.
func (c *OIDCClient) Exchange(ctx context.Context, code, state string) (*OIDCIdentity, error) {
	if !c.consumeState(state) {
		return nil, ErrInvalidOIDCState
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, c.rp)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}

	claims := tokens.IDTokenClaims
	if claims == nil {
		return nil, errors.New("provider returned no ID token claims")
	}

	identity := &OIDCIdentity{
		Subject:       claims.Subject,
		Username:      c.deriveUsername(claims),
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
	}

	if identity.Subject == "" {
		return nil, errors.New("ID token has no subject")
	}

	return identity, nil
}

// deriveUsername tries the configured claims in order and falls back to
// the subject.
func (c *OIDCClient) deriveUsername(claims *oidc.IDTokenClaims) string {
	names := c.cfg.UsernameClaims
	if len(names) == 0 {
		names = []string{"preferred_username", "name", "email"}
	}

	for _, name := range names {
		var value string
		switch name {
		case "preferred_username":
			value = claims.PreferredUsername
		case "name":
			value = claims.Name
		case "email":
			value = claims.Email
		case "sub":
			value = claims.Subject
		}
		if value != "" {
			return value
		}
	}

	return claims.Subject
}

// consumeState checks and removes a state parameter.
func (c *OIDCClient) consumeState(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.states[state]
	if !ok {
		return false
	}
	delete(c.states, state)

	return time.Now().Before(expiry)
}

// pruneStatesLocked drops expired states. Caller holds the mutex.
func (c *OIDCClient) pruneStatesLocked() {
	now := time.Now()
	for state, expiry := range c.states {
		if now.After(expiry) {
			delete(c.states, state)
		}
	}
}

// LoginOIDC signs in (provisioning on first login) an identity verified
// by the OIDC provider. Accounts are matched by email; new accounts get
// the reader role on the free tier.
func (s *Service) LoginOIDC(ctx context.Context, identity *OIDCIdentity, client ClientInfo) (*LoginResult, error) {
	if identity.Email == "" {
		return nil, errors.New("OIDC identity has no email")
	}

	user, err := s.users.GetUserByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user == nil {
		user, err = s.provisionOIDCUser(ctx, identity)
		if err != nil {
			return nil, err
		}
	}

	if user.IsSuspended() {
		s.security.LogLoginFailure(user.Username, ProviderOIDC, client.IP, client.UserAgent, "account suspended")
		return nil, ErrAccountSuspended
	}

	return s.issueSession(ctx, user, ProviderOIDC, client)
}

// provisionOIDCUser creates a local account for a first-time OIDC login.
// The account has no usable password; only the provider can sign it in.
func (s *Service) provisionOIDCUser(ctx context.Context, identity *OIDCIdentity) (*models.User, error) {
	username, err := s.uniqueUsername(ctx, identity.Username)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    identity.Email,
		// An unmatchable marker: VerifyPassword always fails against it.
		PasswordHash: "!oidc",
		Role:         models.RoleReader,
		Tier:         models.TierFree,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}

	logging.Info().
		Str("user_id", user.ID).
		Str("username", logging.SanitizeUsername(user.Username)).
		Msg("Provisioned account from OIDC login")

	return user, nil
}

// uniqueUsername normalizes a candidate username and disambiguates
// collisions with a random suffix.
func (s *Service) uniqueUsername(ctx context.Context, candidate string) (string, error) {
	candidate = strings.ToLower(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, candidate))
	if candidate == "" {
		candidate = "reader"
	}

	existing, err := s.users.GetUserByUsername(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}
	if existing == nil {
		return candidate, nil
	}

	return candidate + "-" + uuid.New().String()[:8], nil
}
