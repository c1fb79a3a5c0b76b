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

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vallestelar/sentinel/internal/audit"
	"github.com/vallestelar/sentinel/internal/auth"
	"github.com/vallestelar/sentinel/internal/observability/logger"
)

// TenantHeader carries the tenant the client claims to act within. It must
// match the tenant baked into the access token.
const TenantHeader = "X-Tenant"

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// RequireAccessToken gates every tenant-scoped route. The sequence is:
// bearer token extraction, signature and lifetime check, token type check,
// X-Tenant agreement, user lookup, user status, tenant membership. Missing
// or bad credentials yield 401; a real identity that is inactive or reaching
// for the wrong tenant yields 403.
func (h *Handler) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokenString := bearerToken(r)
		if tokenString == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.issuer.Decode(tokenString)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if claims.TokenType != auth.TokenTypeAccess {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if claims.Subject == "" || claims.TenantID == "" {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if header := r.Header.Get(TenantHeader); header != "" && header != claims.TenantID {
			h.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeAccessDenied,
				TenantID: claims.TenantID,
				ActorID:  claims.Subject,
				Resource: r.URL.Path,
				Metadata: map[string]any{audit.AttrReason: "tenant_header_mismatch"},
			})
			respondError(w, http.StatusForbidden, "tenant mismatch")
			return
		}

		user, err := h.identityStore.FindUserByID(ctx, claims.Subject)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if user.Status != auth.UserStatusActive {
			h.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeAccessDenied,
				TenantID: claims.TenantID,
				ActorID:  user.ID,
				Resource: r.URL.Path,
				Metadata: map[string]any{audit.AttrReason: "user_inactive"},
			})
			respondError(w, http.StatusForbidden, "user inactive")
			return
		}

		member, err := h.identityStore.MembershipExists(ctx, user.ID, claims.TenantID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !member {
			h.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeAccessDenied,
				TenantID: claims.TenantID,
				ActorID:  user.ID,
				Resource: r.URL.Path,
				Metadata: map[string]any{audit.AttrReason: "no_membership"},
			})
			respondError(w, http.StatusForbidden, "not a member of this tenant")
			return
		}

		ctx = context.WithValue(ctx, userIDKey, user.ID)
		ctx = context.WithValue(ctx, userEmailKey, user.Email)
		ctx = context.WithValue(ctx, tenantIDKey, claims.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
