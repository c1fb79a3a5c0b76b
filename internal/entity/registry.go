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

import (
	"fmt"
	"sync"
)

// RepositoryFactory builds a Repository for one schema with the given
// default filters bound into every query it issues.
type RepositoryFactory func(schema Schema, defaults Filters) Repository

// Constructor builds a Service over an already-scoped Repository. Overrides
// registered per entity type use this to wrap or replace the generic
// behavior.
type Constructor func(schema Schema, repo Repository) Service

// Registry owns the map from entity type to Service. It caches exactly one
// unscoped Service per type; scoped instances carry per-request tenant
// filters and are always built fresh, never cached. The registry is the
// only shared mutable state in the request path and is safe for concurrent
// use.
type Registry struct {
	factory RepositoryFactory

	mu        sync.RWMutex
	schemas   map[string]Schema
	order     []string
	overrides map[string]Constructor
	cache     map[string]Service
}

// NewRegistry creates a registry serving the given schemas.
func NewRegistry(factory RepositoryFactory, schemas ...Schema) *Registry {
	r := &Registry{
		factory:   factory,
		schemas:   make(map[string]Schema, len(schemas)),
		overrides: make(map[string]Constructor),
		cache:     make(map[string]Service),
	}
	for _, s := range schemas {
		r.schemas[s.Type] = s
		r.order = append(r.order, s.Type)
	}
	return r
}

// Schemas returns every registered schema in registration order.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schema, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.schemas[t])
	}
	return out
}

// Get returns the Service for entityType. Without default filters the
// cached unscoped instance is returned, building it on first use. With
// default filters (tenant scoping) a fresh instance is constructed and the
// cache is left untouched.
func (r *Registry) Get(entityType string, defaults ...Filter) (Service, error) {
	r.mu.RLock()
	schema, ok := r.schemas[entityType]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
	if len(defaults) > 0 {
		ctor := r.overrides[entityType]
		r.mu.RUnlock()
		return r.build(schema, Filters(defaults), ctor), nil
	}
	if svc, hit := r.cache[entityType]; hit {
		r.mu.RUnlock()
		return svc, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have populated the slot while we upgraded the
	// lock; reuse it so callers always observe a single unscoped instance.
	if svc, hit := r.cache[entityType]; hit {
		return svc, nil
	}
	svc := r.build(schema, nil, r.overrides[entityType])
	r.cache[entityType] = svc
	return svc, nil
}

// RegisterOverride installs a specialized Service constructor for one
// entity type and evicts any cached instance so the next Get rebuilds with
// the override.
func (r *Registry) RegisterOverride(entityType string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[entityType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
	r.overrides[entityType] = ctor
	delete(r.cache, entityType)
	return nil
}

func (r *Registry) build(schema Schema, defaults Filters, ctor Constructor) Service {
	repo := r.factory(schema, defaults)
	if ctor != nil {
		return ctor(schema, repo)
	}
	return NewGenericService(schema, repo)
}
