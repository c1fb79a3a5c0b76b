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

package entity

import "context"

// Service is the per-entity facade handlers talk to. The generic
// implementation adds nothing beyond delegation; specialized services
// (command dispatch, telemetry) override individual operations to attach
// business rules without touching the repository.
type Service interface {
	Schema() Schema
	Create(ctx context.Context, fields Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, id string, fields Record) (Record, error)
	Delete(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, q ListQuery) ([]Record, error)
	Count(ctx context.Context, filters Filters) (int64, error)
	ListPaginated(ctx context.Context, page, pageSize int, filters Filters, orderBy []SortKey) (*PageResult, error)
}

// GenericService delegates every operation to one Repository.
type GenericService struct {
	schema Schema
	repo   Repository
}

// NewGenericService creates the default service for an entity type.
func NewGenericService(schema Schema, repo Repository) *GenericService {
	return &GenericService{schema: schema, repo: repo}
}

// Schema returns the entity schema this service serves.
func (s *GenericService) Schema() Schema { return s.schema }

// Repo exposes the underlying repository to embedding services.
func (s *GenericService) Repo() Repository { return s.repo }

func (s *GenericService) Create(ctx context.Context, fields Record) (Record, error) {
	return s.repo.Create(ctx, fields)
}

func (s *GenericService) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

func (s *GenericService) Update(ctx context.Context, id string, fields Record) (Record, error) {
	return s.repo.Update(ctx, id, fields)
}

func (s *GenericService) Delete(ctx context.Context, id string) (int64, error) {
	return s.repo.Delete(ctx, id)
}

func (s *GenericService) List(ctx context.Context, q ListQuery) ([]Record, error) {
	return s.repo.List(ctx, q)
}

func (s *GenericService) Count(ctx context.Context, filters Filters) (int64, error) {
	return s.repo.Count(ctx, filters)
}

func (s *GenericService) ListPaginated(ctx context.Context, page, pageSize int, filters Filters, orderBy []SortKey) (*PageResult, error) {
	return s.repo.ListPaginated(ctx, page, pageSize, filters, orderBy)
}
