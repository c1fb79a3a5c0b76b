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

// Pagination bounds. Out-of-range caller values are clamped silently rather
// than rejected.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// PageResult is the envelope of one bounded result slice plus total-count
// metadata computed over the same filter predicate.
type PageResult struct {
	Items    []Record `json:"items"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Pages    int      `json:"pages"`
}

// ClampPage normalizes a page number to >= 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPageSize normalizes a page size into [1, MaxPageSize]. Zero selects
// the default.
func ClampPageSize(size int) int {
	if size == 0 {
		return DefaultPageSize
	}
	if size < 1 {
		return 1
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// PageOffset computes the row offset of a (page, size) pair. Both inputs
// must already be clamped.
func PageOffset(page, size int) int {
	return (page - 1) * size
}

// PageCount computes ceil(total/size). It is zero exactly when total is
// zero.
func PageCount(total int64, size int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
