// Copyright 2026 The Vallestelar Sentinel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth covers credential verification, access-token issuance and
// the identity lookups the request gate depends on.
package auth

import (
	"context"
	"errors"
)

// User statuses
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is the single error every login failure
	// collapses into, so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is the authentication view of an account. Tenancy is attached
// through memberships, not the user row itself.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Status       string
}

// IdentityStore is the persistence surface the login flow and the request
// gate need.
type IdentityStore interface {
	// FindUserByEmail returns ErrUserNotFound when no account matches.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// FindUserByID returns ErrUserNotFound when no account matches.
	FindUserByID(ctx context.Context, id string) (*User, error)
	// MembershipExists reports whether the user belongs to the tenant.
	MembershipExists(ctx context.Context, userID, tenantID string) (bool, error)
}
