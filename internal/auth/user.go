// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account.
type User struct {
	ID           ulid.ULID
	Email        string
	Username     string
	PasswordHash string `json:"-"`
	Bio          *string
	Image        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID.
// Email and username must be non-blank; the hash must be non-empty.
func NewUser(email, username, passwordHash string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if strings.TrimSpace(username) == "" {
		return nil, oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Identity returns the token subject view of u.
func (u *User) Identity() Identity {
	return Identity{Subject: u.ID, Email: u.Email, Username: u.Username}
}

// UserUpdate lists the columns to change. Nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	Bio          *string
	Image        *string
	ClearImage   bool
	PasswordHash *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Bio == nil && u.Image == nil && !u.ClearImage && u.PasswordHash == nil
}

// UserRepository manages user persistence. It is the authority of last
// resort for email and username uniqueness: Create and Update return an
// error matching ErrConflict (as *ConflictError) on a violation.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update applies the non-nil fields of upd and returns the stored row.
	Update(ctx context.Context, id ulid.ULID, upd UserUpdate) (*User, error)

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
