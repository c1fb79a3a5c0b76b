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

// Package entity defines the generic data-access contract shared by every
// persisted fleet entity: dynamic filtering, ordering and pagination over a
// per-entity schema, with non-negotiable default filters carrying tenant
// scope into every query.
package entity

import "time"

// Record is the dynamic representation of one persisted row. Column names
// are schema names, values are Go-native (string, int64, float64, bool,
// time.Time, map[string]any for JSON columns).
type Record map[string]any

// ID returns the record identifier, or "" when unset.
func (r Record) ID() string {
	if v, ok := r["id"].(string); ok {
		return v
	}
	return ""
}

// String returns the named column as a string, or "" when absent or not a
// string.
func (r Record) String(column string) string {
	if v, ok := r[column].(string); ok {
		return v
	}
	return ""
}

// Time returns the named column as a time.Time, or the zero time.
func (r Record) Time(column string) time.Time {
	if v, ok := r[column].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// Clone returns a shallow copy. Nested JSON maps stay shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Schema describes one entity type to the generic repository, service
// registry and HTTP layer. Schemas are immutable after process startup.
type Schema struct {
	// Type is the registry token, e.g. "device".
	Type string

	// Label is the human-readable name used in error messages, e.g. "Device".
	Label string

	// Table is the storage table name.
	Table string

	// Path is the URL segment the entity is mounted under, e.g. "devices".
	Path string

	// Columns lists every caller-settable column. The identifier and the
	// created_at/updated_at timestamps are repository-managed and excluded.
	Columns []string

	// SearchColumn is the designated target of free-text substring search
	// (the "q" list parameter). Empty disables text search.
	SearchColumn string

	// TenantColumn is the column a tenant scope binds to. Most entities use
	// "tenant_id"; the tenants table scopes on its own "id"; empty means the
	// entity is not tenant-scoped (users).
	TenantColumn string

	// DefaultOrder applies when the caller supplies no sort keys. A leading
	// '-' denotes descending.
	DefaultOrder []string
}

// HasColumn reports whether name is a settable column or one of the
// repository-managed columns (id, created_at, updated_at).
func (s Schema) HasColumn(name string) bool {
	switch name {
	case "id", "created_at", "updated_at":
		return true
	}
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}
