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

// ListQuery bounds an unpaginated listing. Zero Limit means no limit.
type ListQuery struct {
	Filters Filters
	OrderBy []SortKey
	Limit   int
	Offset  int
}

// Repository is the storage contract for one entity type. Implementations
// AND their default filters into every operation, including Get, Update and
// Delete; this is the tenant-isolation mechanism.
//
// Absence is not an error: Get and Update return (nil, nil) when no row
// matches under the current scoping, and Delete reports 0 rows removed.
// The only typed failure is *ConflictError; anything else is an
// infrastructure fault the caller surfaces as-is.
type Repository interface {
	// Create persists a new record, generating a UUIDv7 identifier when the
	// caller did not supply one, and returns the stored record.
	Create(ctx context.Context, fields Record) (Record, error)

	// Get returns the record matching id and the default filters, or nil.
	Get(ctx context.Context, id string) (Record, error)

	// Update merges the supplied fields into the existing record; columns
	// absent from fields keep their current values. Returns nil when the id
	// does not match under the default filters.
	Update(ctx context.Context, id string, fields Record) (Record, error)

	// Delete removes rows matching id and the default filters, returning
	// the count removed (0 or 1). Deleting nothing is not an error.
	Delete(ctx context.Context, id string) (int64, error)

	// List returns records matching the default filters merged with the
	// query filters. Without sort keys the order is storage-defined.
	List(ctx context.Context, q ListQuery) ([]Record, error)

	// Count returns the number of records matching the default filters
	// merged with the given filters.
	Count(ctx context.Context, filters Filters) (int64, error)

	// ListPaginated clamps page and pageSize, counts matching rows, fetches
	// the bounded page and assembles the result envelope. The count and the
	// page fetch share one filter predicate but, unless the implementation
	// is configured for snapshot pagination, not one storage snapshot:
	// concurrent writers may shift totals between the two queries.
	ListPaginated(ctx context.Context, page, pageSize int, filters Filters, orderBy []SortKey) (*PageResult, error)
}
