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
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/vallestelar/sentinel/internal/audit"
	"github.com/vallestelar/sentinel/internal/auth"
	"github.com/vallestelar/sentinel/internal/entity"
	"github.com/vallestelar/sentinel/internal/id"
	"github.com/vallestelar/sentinel/internal/model"
)

// memStore holds rows per entity type, shared by every scoped repository
// instance the registry builds.
type memStore struct {
	mu   sync.Mutex
	rows map[string][]entity.Record
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string][]entity.Record)}
}

func (s *memStore) factory() entity.RepositoryFactory {
	return func(schema entity.Schema, defaults entity.Filters) entity.Repository {
		return &memRepository{store: s, schema: schema, defaults: defaults}
	}
}

// seed inserts a row bypassing validation, for test arrangement.
func (s *memStore) seed(entityType string, rec entity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID() == "" {
		rec["id"] = id.NewUUIDv7()
	}
	s.rows[entityType] = append(s.rows[entityType], rec)
}

// memRepository is an in-memory entity.Repository with the same filter and
// pagination semantics as the SQL implementation.
type memRepository struct {
	store    *memStore
	schema   entity.Schema
	defaults entity.Filters
}

func (r *memRepository) validate(fields entity.Record) error {
	for col := range fields {
		if col == "created_at" || col == "updated_at" || !r.schema.HasColumn(col) {
			return &entity.ValidationError{Entity: r.schema.Type, Column: col}
		}
	}
	return nil
}

func matches(rec entity.Record, filters entity.Filters) bool {
	for _, f := range filters {
		switch f.Op {
		case entity.OpSubstring:
			want, _ := f.Value.(string)
			have := rec.String(f.Column)
			if !strings.Contains(strings.ToLower(have), strings.ToLower(want)) {
				return false
			}
		default:
			if fmt.Sprint(rec[f.Column]) != fmt.Sprint(f.Value) {
				return false
			}
		}
	}
	return true
}

func (r *memRepository) Create(ctx context.Context, fields entity.Record) (entity.Record, error) {
	if err := r.validate(fields); err != nil {
		return nil, err
	}
	rec := fields.Clone()
	if rec.ID() == "" {
		rec["id"] = id.NewUUIDv7()
	}
	for _, f := range r.defaults {
		if f.Op == entity.OpEqual && f.Column != "id" {
			rec[f.Column] = f.Value
		}
	}
	now := time.Now().UTC()
	rec["created_at"] = now
	rec["updated_at"] = now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.rows[r.schema.Type] = append(r.store.rows[r.schema.Type], rec)
	return rec.Clone(), nil
}

func (r *memRepository) Get(ctx context.Context, recordID string) (entity.Record, error) {
	filters := r.defaults.Merge(entity.Filters{entity.Equal("id", recordID)})
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, rec := range r.store.rows[r.schema.Type] {
		if matches(rec, filters) {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

func (r *memRepository) Update(ctx context.Context, recordID string, fields entity.Record) (entity.Record, error) {
	if err := r.validate(fields); err != nil {
		return nil, err
	}
	filters := r.defaults.Merge(entity.Filters{entity.Equal("id", recordID)})
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, rec := range r.store.rows[r.schema.Type] {
		if !matches(rec, filters) {
			continue
		}
		updated := rec.Clone()
		for col, val := range fields {
			if col == "id" {
				continue
			}
			updated[col] = val
		}
		updated["updated_at"] = time.Now().UTC()
		r.store.rows[r.schema.Type][i] = updated
		return updated.Clone(), nil
	}
	return nil, nil
}

func (r *memRepository) Delete(ctx context.Context, recordID string) (int64, error) {
	filters := r.defaults.Merge(entity.Filters{entity.Equal("id", recordID)})
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.rows[r.schema.Type][:0]
	var deleted int64
	for _, rec := range r.store.rows[r.schema.Type] {
		if matches(rec, filters) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.store.rows[r.schema.Type] = kept
	return deleted, nil
}

func (r *memRepository) List(ctx context.Context, q entity.ListQuery) ([]entity.Record, error) {
	for _, f := range q.Filters {
		if !r.schema.HasColumn(f.Column) {
			return nil, &entity.ValidationError{Entity: r.schema.Type, Column: f.Column}
		}
	}
	filters := r.defaults.Merge(q.Filters)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entity.Record
	for _, rec := range r.store.rows[r.schema.Type] {
		if matches(rec, filters) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *memRepository) Count(ctx context.Context, filters entity.Filters) (int64, error) {
	items, err := r.List(ctx, entity.ListQuery{Filters: filters})
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

func (r *memRepository) ListPaginated(ctx context.Context, page, pageSize int, filters entity.Filters, orderBy []entity.SortKey) (*entity.PageResult, error) {
	page = entity.ClampPage(page)
	pageSize = entity.ClampPageSize(pageSize)

	items, err := r.List(ctx, entity.ListQuery{Filters: filters})
	if err != nil {
		return nil, err
	}
	total := int64(len(items))

	start := entity.PageOffset(page, pageSize)
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	pageItems := items[start:end]
	if pageItems == nil {
		pageItems = []entity.Record{}
	}

	return &entity.PageResult{
		Items:    pageItems,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    entity.PageCount(total, pageSize),
	}, nil
}

// memIdentityStore backs the access gate in tests.
type memIdentityStore struct {
	users       map[string]*auth.User // keyed by ID
	memberships map[string]bool       // "userID/tenantID"
}

func (m *memIdentityStore) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memIdentityStore) FindUserByID(ctx context.Context, userID string) (*auth.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, auth.ErrUserNotFound
}

func (m *memIdentityStore) MembershipExists(ctx context.Context, userID, tenantID string) (bool, error) {
	return m.memberships[userID+"/"+tenantID], nil
}

// testEnv bundles everything the handler tests need.
type testEnv struct {
	router *chi.Mux
	store  *memStore
	issuer *auth.TokenIssuer
	ids    *memIdentityStore
	hasher *auth.PasswordHasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	registry := entity.NewRegistry(store.factory(), model.Schemas()...)

	hasher := auth.NewPasswordHasher(8*1024, 1, 1, 16, 32)
	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)

	ids := &memIdentityStore{
		users: map[string]*auth.User{
			"user-1": {
				ID: "user-1", Email: "op@example.com",
				PasswordHash: hash, Status: auth.UserStatusActive,
			},
			"user-frozen": {
				ID: "user-frozen", Email: "frozen@example.com",
				PasswordHash: hash, Status: auth.UserStatusSuspended,
			},
		},
		memberships: map[string]bool{
			"user-1/tenant-a": true,
		},
	}

	issuer := auth.NewTokenIssuer("handler-test-secret", "HS256", 30*time.Minute)
	auditLogger := audit.NewSlogLogger()
	authService := auth.NewService(ids, hasher, issuer, auditLogger)

	h := NewHandler(authService, issuer, ids, registry, auditLogger)
	router := NewRouter(h, NewRateLimiter(1000, 1000))

	return &testEnv{router: router, store: store, issuer: issuer, ids: ids, hasher: hasher}
}

// tokenFor mints a valid access token for the test user in the tenant.
func (e *testEnv) tokenFor(t *testing.T, userID, tenantID string) string {
	t.Helper()
	token, err := e.issuer.Issue(userID, tenantID, nil)
	require.NoError(t, err)
	return token
}
