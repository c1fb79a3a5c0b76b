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
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the only token type this issuer mints.
const TokenTypeAccess = "access"

// DefaultAccessTokenTTL applies when the issuer is constructed with a
// non-positive lifetime.
const DefaultAccessTokenTTL = 30 * time.Minute

// ErrInvalidToken is returned for any token that fails signature, shape or
// lifetime checks. Callers get no detail about which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded view of an access token.
type Claims struct {
	Subject   string
	TenantID  string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies HMAC-signed access tokens.
type TokenIssuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer signing with the given secret.
// algorithm must be one of HS256, HS384 or HS512; anything else falls back
// to HS256.
func NewTokenIssuer(secret string, algorithm string, ttl time.Duration) *TokenIssuer {
	method := jwt.SigningMethodHS256
	switch algorithm {
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), method: method, ttl: ttl}
}

// TTL returns the configured access token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue mints an access token for the user within the tenant. extras are
// merged into the claim set but can never displace the reserved claims.
func (t *TokenIssuer) Issue(userID, tenantID string, extras map[string]any) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{}
	for k, v := range extras {
		claims[k] = v
	}
	claims["sub"] = userID
	claims["tenant"] = tenantID
	claims["type"] = TokenTypeAccess
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(t.ttl).Unix()

	token := jwt.NewWithClaims(t.method, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and lifetime of a token and returns its
// claims. Every failure maps to ErrInvalidToken.
func (t *TokenIssuer) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	tenant, _ := mapClaims["tenant"].(string)
	tokenType, _ := mapClaims["type"].(string)
	if sub == "" || tokenType == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		Subject:   sub,
		TenantID:  tenant,
		TokenType: tokenType,
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
