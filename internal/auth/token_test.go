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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

// TestPurpose: Validates issue/decode round-trip of an access token.
// Scope: Unit Test
// Expected: Decoded claims carry the subject, tenant, access type and a
// lifetime matching the configured TTL.
func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", 30*time.Minute)

	token, err := issuer.Issue("user-1", "tenant-1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.WithinDuration(t, claims.IssuedAt.Add(30*time.Minute), claims.ExpiresAt, time.Second)
}

// TestPurpose: Validates that extra claims cannot displace the reserved
// sub/tenant/type/iat/exp claims.
// Scope: Unit Test
// Security: A caller-supplied "sub" must never override the real subject.
// Expected: Reserved claims keep their issued values.
func TestTokenIssuer_ExtrasCannotOverrideReserved(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", time.Minute)

	token, err := issuer.Issue("user-1", "tenant-1", map[string]any{
		"sub":    "attacker",
		"tenant": "other-tenant",
		"type":   "refresh",
		"role":   "viewer",
	})
	require.NoError(t, err)

	claims, err := issuer.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

// TestPurpose: Validates rejection of expired tokens.
// Scope: Unit Test
// Expected: Decode returns ErrInvalidToken once exp has passed.
func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", -time.Minute)
	// A non-positive TTL falls back to the default, so craft the expired
	// token directly.
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "user-1",
		"tenant": "tenant-1",
		"type":   TokenTypeAccess,
		"iat":    time.Now().Add(-2 * time.Hour).Unix(),
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = issuer.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates rejection of tokens signed with a different secret.
// Scope: Unit Test
// Security: Signature verification is the trust boundary.
// Expected: Decode returns ErrInvalidToken.
func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", time.Minute)
	other := NewTokenIssuer("another-secret", "HS256", time.Minute)

	token, err := other.Issue("user-1", "tenant-1", nil)
	require.NoError(t, err)

	_, err = issuer.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates rejection of tampered token payloads.
// Scope: Unit Test
// Expected: Any byte flip in the payload fails signature verification.
func TestTokenIssuer_Tampered(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", time.Minute)

	token, err := issuer.Issue("user-1", "tenant-1", nil)
	require.NoError(t, err)

	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	_, err = issuer.Decode(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates rejection of tokens using the "none" algorithm or
// an asymmetric algorithm header.
// Scope: Unit Test
// Security: Algorithm confusion must not bypass HMAC verification.
// Expected: Decode returns ErrInvalidToken.
func TestTokenIssuer_AlgorithmConfusion(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", time.Minute)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":    "user-1",
		"tenant": "tenant-1",
		"type":   TokenTypeAccess,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates garbage input handling.
// Scope: Unit Test
// Expected: Non-JWT strings return ErrInvalidToken, never panic.
func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "HS256", time.Minute)

	for _, bad := range []string{"", "not-a-token", "a.b.c", "...."} {
		_, err := issuer.Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", bad)
	}
}
