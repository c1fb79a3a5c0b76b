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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vallestelar/sentinel/internal/auth"
)

// IdentityRepository implements auth.IdentityStore
type IdentityRepository struct {
	db *DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// FindUserByEmail retrieves a user by email
func (r *IdentityRepository) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findUser(ctx, "email = $1", email)
}

// FindUserByID retrieves a user by ID
func (r *IdentityRepository) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return r.findUser(ctx, "id = $1", id)
}

func (r *IdentityRepository) findUser(ctx context.Context, predicate string, arg any) (*auth.User, error) {
	var user auth.User
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(full_name, ''), status
		FROM users
		WHERE `+predicate,
		arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// MembershipExists reports whether the user has a membership in the tenant
func (r *IdentityRepository) MembershipExists(ctx context.Context, userID, tenantID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_memberships
			WHERE user_id = $1 AND tenant_id = $2
		)
	`, userID, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}
