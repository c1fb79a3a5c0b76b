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

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/vallestelar/sentinel/internal/audit"
)

// Service runs the login flow: credential check, tenant membership check,
// token issuance.
type Service struct {
	store       IdentityStore
	hasher      *PasswordHasher
	issuer      *TokenIssuer
	auditLogger audit.Logger
}

// NewService creates a new auth service
func NewService(store IdentityStore, hasher *PasswordHasher, issuer *TokenIssuer, auditLogger audit.Logger) *Service {
	return &Service{store: store, hasher: hasher, issuer: issuer, auditLogger: auditLogger}
}

// TokenResponse is the login result.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login authenticates email/password within a tenant and mints an access
// token. Every failure collapses into ErrInvalidCredentials; the audited
// reason carries the detail.
func (s *Service) Login(ctx context.Context, tenantID, email, password string) (*TokenResponse, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		reason := "lookup_failed"
		if errors.Is(err, ErrUserNotFound) {
			reason = "user_not_found"
		}
		s.auditFailure(ctx, tenantID, "", email, reason)
		return nil, ErrInvalidCredentials
	}

	if user.Status != UserStatusActive {
		s.auditFailure(ctx, tenantID, user.ID, "login", "user_inactive")
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		s.auditFailure(ctx, tenantID, user.ID, "login", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	member, err := s.store.MembershipExists(ctx, user.ID, tenantID)
	if err != nil || !member {
		s.auditFailure(ctx, tenantID, user.ID, "login", "no_membership")
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.ID, tenantID, map[string]any{"role": "user"})
	if err != nil {
		s.auditFailure(ctx, tenantID, user.ID, "login", "issue_failed")
		return nil, ErrInvalidCredentials
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: tenantID,
		ActorID:  user.ID,
		Resource: "login",
	})
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenIssued,
		TenantID: tenantID,
		ActorID:  user.ID,
		Resource: "access_token",
	})

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.issuer.TTL() / time.Second),
	}, nil
}

func (s *Service) auditFailure(ctx context.Context, tenantID, actorID, resource, reason string) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginFailed,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: resource,
		Metadata: map[string]any{audit.AttrReason: reason},
	})
}
