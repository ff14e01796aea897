// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// users.go - Account Database Operations
//
// This file contains CRUD operations for user accounts.
//
// Security:
//   - Password hashes are stored, never plaintext passwords
//   - All operations are parameterized (SQL injection safe)
//   - Role and status changes are recorded in the audit log by callers
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperbound/paperbound/internal/models"
)

const userColumns = `
	id, username, email, password_hash, display_name, bio, avatar_path,
	role, tier, status, last_login_at, created_at, updated_at
`

// CreateUser creates a new account.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		INSERT INTO users (
			id, username, email, password_hash, display_name, bio, avatar_path,
			role, tier, status, last_login_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		nullableString(user.DisplayName), nullableString(user.Bio), nullableString(user.AvatarPath),
		user.Role, user.Tier, user.Status,
		nullableTime(user.LastLoginAt), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by id. Returns nil when no user matches.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username. Returns nil when no user matches.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUser(ctx, `WHERE username = ?`, username)
}

// GetUserByEmail retrieves a user by email. Returns nil when no user matches.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	return scanUser(row)
}

// UpdateUserProfile updates the mutable profile fields of a user.
func (db *DB) UpdateUserProfile(ctx context.Context, user *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		UPDATE users SET
			display_name = ?,
			bio = ?,
			avatar_path = ?,
			email = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := db.conn.ExecContext(ctx, query,
		nullableString(user.DisplayName), nullableString(user.Bio), nullableString(user.AvatarPath),
		user.Email, time.Now(), user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	return checkRowsAffected(result, "user")
}

// UpdateUserPassword replaces the stored password hash.
func (db *DB) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return checkRowsAffected(result, "user")
}

// UpdateUserRole changes a user's role.
func (db *DB) UpdateUserRole(ctx context.Context, userID, role string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	return checkRowsAffected(result, "user")
}

// UpdateUserStatus suspends or reactivates an account.
func (db *DB) UpdateUserStatus(ctx context.Context, userID, status string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return checkRowsAffected(result, "user")
}

// UpdateUserTier sets the tier column. The tier mirrors the user's active
// subscription and is written by the billing webhook handler.
func (db *DB) UpdateUserTier(ctx context.Context, userID, tier string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET tier = ?, updated_at = ? WHERE id = ?`,
		tier, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}

	return checkRowsAffected(result, "user")
}

// TouchLastLogin records a successful login.
func (db *DB) TouchLastLogin(ctx context.Context, userID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// ListUsers returns a page of users for the admin view, newest first.
func (db *DB) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

// userScanData holds scanned database values before conversion to models.User.
type userScanData struct {
	id, username, email, passwordHash string
	displayName, bio, avatarPath      sql.NullString
	role, tier, status                string
	lastLoginAt                       sql.NullTime
	createdAt, updatedAt              time.Time
}

func (d *userScanData) toUser() *models.User {
	return &models.User{
		ID:           d.id,
		Username:     d.username,
		Email:        d.email,
		PasswordHash: d.passwordHash,
		DisplayName:  d.displayName.String,
		Bio:          d.bio.String,
		AvatarPath:   d.avatarPath.String,
		Role:         d.role,
		Tier:         d.tier,
		Status:       d.status,
		LastLoginAt:  timePtr(d.lastLoginAt),
		CreatedAt:    d.createdAt,
		UpdatedAt:    d.updatedAt,
	}
}

func scanUser(row *sql.Row) (*models.User, error) {
	var d userScanData
	err := row.Scan(
		&d.id, &d.username, &d.email, &d.passwordHash,
		&d.displayName, &d.bio, &d.avatarPath,
		&d.role, &d.tier, &d.status,
		&d.lastLoginAt, &d.createdAt, &d.updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return d.toUser(), nil
}

func scanUserRow(rows *sql.Rows) (*models.User, error) {
	var d userScanData
	err := rows.Scan(
		&d.id, &d.username, &d.email, &d.passwordHash,
		&d.displayName, &d.bio, &d.avatarPath,
		&d.role, &d.tier, &d.status,
		&d.lastLoginAt, &d.createdAt, &d.updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return d.toUser(), nil
}
