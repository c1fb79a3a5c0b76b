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

import "strings"

// Op enumerates the supported filter predicates.
type Op uint8

const (
	// OpEqual matches column = value.
	OpEqual Op = iota
	// OpSubstring matches a case-insensitive substring of a text column.
	OpSubstring
	// OpGTE matches column >= value.
	OpGTE
	// OpLTE matches column <= value.
	OpLTE
)

// Filter is one typed predicate over a named column. Filters on the same
// column combine with AND, like every other filter.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Equal builds an equality filter.
func Equal(column string, value any) Filter {
	return Filter{Column: column, Op: OpEqual, Value: value}
}

// Substring builds a case-insensitive substring filter.
func Substring(column, value string) Filter {
	return Filter{Column: column, Op: OpSubstring, Value: value}
}

// GTE builds a lower-bound filter.
func GTE(column string, value any) Filter {
	return Filter{Column: column, Op: OpGTE, Value: value}
}

// LTE builds an upper-bound filter.
func LTE(column string, value any) Filter {
	return Filter{Column: column, Op: OpLTE, Value: value}
}

// Filters is an ordered conjunction of predicates.
type Filters []Filter

// Merge combines default filters with caller filters. Caller filters on a
// column that already appears in the defaults are discarded: default filters
// carry non-negotiable scoping (tenant id) and must never be overridden.
func (f Filters) Merge(caller Filters) Filters {
	if len(f) == 0 {
		return caller
	}
	merged := make(Filters, 0, len(f)+len(caller))
	merged = append(merged, f...)
	for _, c := range caller {
		if f.hasColumn(c.Column) {
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

func (f Filters) hasColumn(column string) bool {
	for _, d := range f {
		if d.Column == column {
			return true
		}
	}
	return false
}

// SortKey is one ordering term parsed from an order_by value.
type SortKey struct {
	Column     string
	Descending bool
}

// ParseOrderBy decodes sort keys in the wire form ["name", "-created_at"].
// Empty terms are dropped.
func ParseOrderBy(keys []string) []SortKey {
	out := make([]SortKey, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || k == "-" {
			continue
		}
		if strings.HasPrefix(k, "-") {
			out = append(out, SortKey{Column: k[1:], Descending: true})
			continue
		}
		out = append(out, SortKey{Column: k})
	}
	return out
}
