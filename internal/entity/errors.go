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
	"errors"
	"fmt"
)

// ErrUnknownEntity is returned by the registry for an unregistered type.
var ErrUnknownEntity = errors.New("unknown entity type")

// ConflictError reports a uniqueness-constraint violation on create or
// update. The caller may retry with different input; all other storage
// failures propagate untyped.
type ConflictError struct {
	Entity string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with same unique key already exists", e.Entity)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a uniqueness-constraint violation.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ValidationError reports malformed caller input rejected before reaching
// storage: an unknown column in fields, filters or sort keys.
type ValidationError struct {
	Entity string
	Column string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unknown column %q for %s", e.Column, e.Entity)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
