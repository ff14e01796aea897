// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/models"
)

// fakeUserStore is an in-memory UserStore for service tests.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *fakeUserStore) TouchLastLogin(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

func newTestService(t *testing.T, lockoutThreshold int) (*Service, *fakeUserStore) {
	t.Helper()

	jwt, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "this_is_a_very_long_secret_key_for_testing_purposes_12345",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	users := newFakeUserStore()
	lockout := NewLockoutManager(nil, lockoutThreshold, time.Hour)
	return NewService(users, NewMemorySessionStore(), jwt, lockout), users
}

func registerTestUser(t *testing.T, service *Service, username string) *models.User {
	t.Helper()

	user, err := service.Register(context.Background(), username, username+"@example.com", "reading-is-fun")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return user
}

func TestRegisterDefaults(t *testing.T) {
	service, _ := newTestService(t, 0)
	user := registerTestUser(t, service, "inkwell")

	if user.Role != models.RoleReader {
		t.Errorf("Role = %q, want reader", user.Role)
	}
	if user.Tier != models.TierFree {
		t.Errorf("Tier = %q, want free", user.Tier)
	}
	if user.Status != models.UserStatusActive {
		t.Errorf("Status = %q, want active", user.Status)
	}
	if user.PasswordHash == "" || user.PasswordHash == "reading-is-fun" {
		t.Error("password was not hashed")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	service, _ := newTestService(t, 0)
	registerTestUser(t, service, "inkwell")

	ctx := context.Background()
	if _, err := service.Register(ctx, "inkwell", "other@example.com", "reading-is-fun"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
	if _, err := service.Register(ctx, "margin", "inkwell@example.com", "reading-is-fun"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}
	if _, err := service.Register(ctx, "margin", "margin@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password error = %v, want ErrWeakPassword", err)
	}
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	service, _ := newTestService(t, 0)
	user := registerTestUser(t, service, "inkwell")
	ctx := context.Background()

	result, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if result.User.ID != user.ID {
		t.Errorf("User.ID = %q, want %q", result.User.ID, user.ID)
	}
	if result.Token == "" {
		t.Error("Login() returned empty token")
	}

	// The token round-trips and points at the created session.
	claims, err := service.JWT().ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.SessionID != result.Session.ID {
		t.Errorf("claims.SessionID = %q, want %q", claims.SessionID, result.Session.ID)
	}

	if _, err := service.Sessions().Get(ctx, result.Session.ID); err != nil {
		t.Errorf("session not stored: %v", err)
	}

	// Email works as the login identifier too.
	if _, err := service.Login(ctx, "inkwell@example.com", "reading-is-fun", ClientInfo{}); err != nil {
		t.Errorf("Login() by email error = %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service, _ := newTestService(t, 0)
	registerTestUser(t, service, "inkwell")
	ctx := context.Background()

	if _, err := service.Login(ctx, "inkwell", "wrong-password", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Login(ctx, "nobody", "reading-is-fun", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown account error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	service, users := newTestService(t, 0)
	user := registerTestUser(t, service, "inkwell")

	users.mu.Lock()
	users.users[user.ID].Status = models.UserStatusSuspended
	users.mu.Unlock()

	if _, err := service.Login(context.Background(), "inkwell", "reading-is-fun", ClientInfo{}); !errors.Is(err, ErrAccountSuspended) {
		t.Errorf("suspended account error = %v, want ErrAccountSuspended", err)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	service, _ := newTestService(t, 2)
	registerTestUser(t, service, "inkwell")
	ctx := context.Background()

	if _, err := service.Login(ctx, "inkwell", "wrong-password", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("first failure error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Login(ctx, "inkwell", "wrong-password", ClientInfo{}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("second failure error = %v, want ErrAccountLocked", err)
	}

	// Even the right password is rejected while locked.
	if _, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{}); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("locked login error = %v, want ErrAccountLocked", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	service, _ := newTestService(t, 0)
	registerTestUser(t, service, "inkwell")
	ctx := context.Background()

	result, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	subject := result.Session.Subject()
	if err := service.Logout(ctx, subject, ClientInfo{}); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, err := service.Sessions().Get(ctx, result.Session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("session after logout error = %v, want ErrSessionNotFound", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	service, _ := newTestService(t, 0)
	registerTestUser(t, service, "inkwell")
	ctx := context.Background()

	var last *LoginResult
	for i := 0; i < 3; i++ {
		result, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		last = result
	}

	count, err := service.LogoutAll(ctx, last.Session.Subject(), ClientInfo{})
	if err != nil {
		t.Fatalf("LogoutAll() error = %v", err)
	}
	if count != 3 {
		t.Errorf("LogoutAll() = %d, want 3", count)
	}

	sessions, err := service.ListSessions(ctx, last.User.ID)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("ListSessions() returned %d sessions, want 0", len(sessions))
	}
}

func TestRevokeSessionEnforcesOwnership(t *testing.T) {
	service, _ := newTestService(t, 0)
	registerTestUser(t, service, "inkwell")
	registerTestUser(t, service, "margin")
	ctx := context.Background()

	owner, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	other, err := service.Login(ctx, "margin", "reading-is-fun", ClientInfo{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// margin cannot revoke inkwell's session.
	err = service.RevokeSession(ctx, other.Session.Subject(), owner.Session.ID, ClientInfo{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("cross-user revoke error = %v, want ErrSessionNotFound", err)
	}

	if err := service.RevokeSession(ctx, owner.Session.Subject(), owner.Session.ID, ClientInfo{}); err != nil {
		t.Errorf("own revoke error = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	service, _ := newTestService(t, 0)
	registerTestUser(t, service, "inkwell")
	ctx := context.Background()

	current, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	stale, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	subject := current.Session.Subject()

	err = service.ChangePassword(ctx, subject, "wrong-password", "turning-the-page")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password error = %v, want ErrInvalidCredentials", err)
	}

	if err := service.ChangePassword(ctx, subject, "reading-is-fun", "turning-the-page"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	// The old password no longer works, the new one does.
	if _, err := service.Login(ctx, "inkwell", "reading-is-fun", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Login(ctx, "inkwell", "turning-the-page", ClientInfo{}); err != nil {
		t.Errorf("new password error = %v", err)
	}

	// Other sessions were revoked, the current one survives.
	if _, err := service.Sessions().Get(ctx, stale.Session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("stale session error = %v, want ErrSessionNotFound", err)
	}
	if _, err := service.Sessions().Get(ctx, current.Session.ID); err != nil {
		t.Errorf("current session error = %v", err)
	}
}

func TestLoginOIDCProvisionsAccount(t *testing.T) {
	service, _ := newTestService(t, 0)
	ctx := context.Background()

	identity := &OIDCIdentity{
		Subject:       "provider-sub-1",
		Username:      "Ink Well",
		Email:         "inkwell@example.com",
		EmailVerified: true,
	}

	result, err := service.LoginOIDC(ctx, identity, ClientInfo{})
	if err != nil {
		t.Fatalf("LoginOIDC() error = %v", err)
	}

	if result.User.Email != identity.Email {
		t.Errorf("Email = %q, want %q", result.User.Email, identity.Email)
	}
	if result.User.Username != "ink-well" {
		t.Errorf("Username = %q, want normalized ink-well", result.User.Username)
	}
	if result.Session.Provider != ProviderOIDC {
		t.Errorf("Provider = %q, want oidc", result.Session.Provider)
	}

	// The provisioned account has no usable password.
	if _, err := service.Login(ctx, "ink-well", "anything-at-all", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("password login error = %v, want ErrInvalidCredentials", err)
	}

	// A second OIDC login reuses the account.
	again, err := service.LoginOIDC(ctx, identity, ClientInfo{})
	if err != nil {
		t.Fatalf("second LoginOIDC() error = %v", err)
	}
	if again.User.ID != result.User.ID {
		t.Error("second OIDC login created a new account")
	}
}
