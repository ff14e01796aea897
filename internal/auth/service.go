// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/models"
)

// UserStore is the slice of account storage the auth service needs.
// *database.DB satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// ClientInfo carries request metadata recorded on sessions and in the
// security log.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User    *models.User
	Session *Session
	Token   string
}

// Service implements the account authentication flows: registration,
// login with lockout, logout, and password changes.
type Service struct {
	users    UserStore
	sessions SessionStore
	jwt      *JWTManager
	lockout  *LockoutManager
	security *logging.SecurityLogger
}

// NewService creates an authentication service.
func NewService(users UserStore, sessions SessionStore, jwt *JWTManager, lockout *LockoutManager) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		jwt:      jwt,
		lockout:  lockout,
		security: logging.NewSecurityLogger(),
	}
}

// Sessions returns the underlying session store.
func (s *Service) Sessions() SessionStore {
	return s.sessions
}

// JWT returns the underlying token manager.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// Lockout returns the underlying lockout manager.
func (s *Service) Lockout() *LockoutManager {
	return s.lockout
}

// Register creates a new reader account on the free tier.
// Returns ErrUsernameTaken or ErrEmailTaken when the identifiers collide.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := config.UserPasswordPolicy().ValidateWithError(password, username); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	if existing, err := s.users.GetUserByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}

	if existing, err := s.users.GetUserByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleReader,
		Tier:         models.TierFree,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	logging.Info().
		Str("user_id", user.ID).
		Str("username", logging.SanitizeUsername(user.Username)).
		Msg("Account registered")

	return user, nil
}

// Login verifies credentials against the account identified by username or
// email, and on success issues a JWT bound to a fresh session.
//
// Failed attempts feed the lockout manager; a locked account fails with
// ErrAccountLocked before the password is checked.
func (s *Service) Login(ctx context.Context, login, password string, client ClientInfo) (*LoginResult, error) {
	locked, _, err := s.lockout.CheckLocked(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		s.security.LogLoginFailure(login, ProviderLocal, client.IP, client.UserAgent, "account locked")
		return nil, ErrAccountLocked
	}

	user, err := s.lookupAccount(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn a bcrypt comparison so unknown accounts cost the same
		// as wrong passwords.
		_ = VerifyPassword("$2a$12$invalidsaltinvalidsaltinvalidsaltinvalidsaltinvalid", password)
		return nil, s.failLogin(ctx, login, client, "unknown account")
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, login, client, "wrong password")
	}

	if user.IsSuspended() {
		s.security.LogLoginFailure(login, ProviderLocal, client.IP, client.UserAgent, "account suspended")
		return nil, ErrAccountSuspended
	}

	if err := s.lockout.RecordSuccessfulLogin(ctx, login); err != nil {
		logging.Warn().Err(err).Msg("Failed to clear lockout state")
	}

	return s.issueSession(ctx, user, ProviderLocal, client)
}

// issueSession creates a server-side session and a JWT bound to it.
func (s *Service) issueSession(ctx context.Context, user *models.User, provider string, client ClientInfo) (*LoginResult, error) {
	subject := &Subject{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Tier:     user.Tier,
		Provider: provider,
	}

	session := NewSession(subject, s.jwt.Timeout())
	session.IP = client.IP
	session.UserAgent = client.UserAgent

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	subject.SessionID = session.ID
	token, err := s.jwt.GenerateToken(subject)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		logging.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record last login")
	}

	s.security.LogLoginSuccess(user.ID, user.Username, provider, client.IP, client.UserAgent)
	s.security.LogSessionCreated(user.ID, session.ID, provider, client.IP)

	return &LoginResult{User: user, Session: session, Token: token}, nil
}

// failLogin records the failed attempt and returns the error the caller
// should surface. Lockout transitions are reported as ErrAccountLocked.
func (s *Service) failLogin(ctx context.Context, login string, client ClientInfo, reason string) error {
	s.security.LogLoginFailure(login, ProviderLocal, client.IP, client.UserAgent, reason)

	locked, _, err := s.lockout.RecordFailedAttempt(ctx, login, client.IP, client.UserAgent)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to record login failure")
	}
	if locked {
		s.security.LogAccountLocked(login, client.IP, s.lockout.threshold)
		return ErrAccountLocked
	}

	return ErrInvalidCredentials
}

// lookupAccount resolves a login identifier to a user. Identifiers with
// an @ are tried as email first, then username.
func (s *Service) lookupAccount(ctx context.Context, login string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		user, err = s.users.GetUserByEmail(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
	}
	return user, nil
}

// Logout revokes a single session.
func (s *Service) Logout(ctx context.Context, subject *Subject, client ClientInfo) error {
	if err := s.sessions.Delete(ctx, subject.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.security.LogLogout(subject.UserID, subject.SessionID, client.IP)
	return nil
}

// LogoutAll revokes every session belonging to the subject.
func (s *Service) LogoutAll(ctx context.Context, subject *Subject, client ClientInfo) (int, error) {
	count, err := s.sessions.DeleteByUserID(ctx, subject.UserID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	s.security.LogLogoutAll(subject.UserID, client.IP, count)
	return count, nil
}

// ListSessions returns the subject's live sessions.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	return s.sessions.GetByUserID(ctx, userID)
}

// RevokeSession revokes one of the subject's own sessions by ID.
// Returns ErrSessionNotFound when the session does not belong to the subject.
func (s *Service) RevokeSession(ctx context.Context, subject *Subject, sessionID string, client ClientInfo) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != subject.UserID {
		return ErrSessionNotFound
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.security.LogSessionRevoked(subject.UserID, sessionID, subject.UserID, client.IP)
	return nil
}

// ChangePassword re-verifies the old password before storing a new hash,
// then revokes every other session so stolen tokens stop working.
func (s *Service) ChangePassword(ctx context.Context, subject *Subject, oldPassword, newPassword string) error {
	user, err := s.users.GetUserByID(ctx, subject.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	if err := VerifyPassword(user.PasswordHash, oldPassword); err != nil {
		return err
	}

	if err := config.UserPasswordPolicy().ValidateWithError(newPassword, user.Username); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	sessions, err := s.sessions.GetByUserID(ctx, user.ID)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to list sessions after password change")
		return nil
	}
	for _, session := range sessions {
		if session.ID == subject.SessionID {
			continue
		}
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			logging.Warn().Err(err).Msg("Failed to revoke session after password change")
		}
	}

	return nil
}
