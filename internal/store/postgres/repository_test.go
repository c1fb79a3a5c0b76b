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

package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vallestelar/sentinel/internal/entity"
)

func testSchema() entity.Schema {
	return entity.Schema{
		Type:         "device",
		Label:        "Device",
		Table:        "devices",
		Path:         "devices",
		Columns:      []string{"tenant_id", "name", "status", "last_seen_at"},
		SearchColumn: "name",
		TenantColumn: "tenant_id",
		DefaultOrder: []string{"name"},
	}
}

// TestPurpose: Validates WHERE rendering for each operator with positional
// parameters.
// Scope: Unit Test
// Security: All values travel as parameters, never interpolated into SQL.
// Expected: Clauses join with AND and arguments line up with placeholders.
func TestBuildWhere_Operators(t *testing.T) {
	schema := testSchema()

	where, args, err := buildWhere(schema, entity.Filters{
		entity.Equal("tenant_id", "t1"),
		entity.Substring("name", "pump"),
		entity.GTE("last_seen_at", "2026-01-01"),
		entity.LTE("last_seen_at", "2026-02-01"),
	}, 0)
	require.NoError(t, err)

	assert.Equal(t,
		"tenant_id = $1 AND name ILIKE $2 AND last_seen_at >= $3 AND last_seen_at <= $4",
		where)
	assert.Equal(t, []any{"t1", "%pump%", "2026-01-01", "2026-02-01"}, args)
}

// TestPurpose: Validates placeholder numbering continues after an offset,
// as used by UPDATE statements whose SET list consumed parameters.
// Scope: Unit Test
// Expected: The first clause uses $4 when offset is 3.
func TestBuildWhere_ArgOffset(t *testing.T) {
	where, args, err := buildWhere(testSchema(), entity.Filters{
		entity.Equal("id", "x"),
		entity.Equal("tenant_id", "t1"),
	}, 3)
	require.NoError(t, err)

	assert.Equal(t, "id = $4 AND tenant_id = $5", where)
	assert.Len(t, args, 2)
}

// TestPurpose: Validates rejection of filters on unknown columns before any
// SQL reaches the database.
// Scope: Unit Test
// Security: Column names cannot be parameterized, so they are allow-listed
// against the schema.
// Expected: A ValidationError naming the column.
func TestBuildWhere_UnknownColumn(t *testing.T) {
	_, _, err := buildWhere(testSchema(), entity.Filters{
		entity.Equal("name; DROP TABLE devices", "x"),
	}, 0)

	assert.True(t, entity.IsValidation(err))
}

// TestPurpose: Validates LIKE metacharacter escaping in search input.
// Scope: Unit Test
// Expected: %, _ and backslash are escaped; the pattern is wrapped in %.
func TestBuildWhere_EscapesLikeInput(t *testing.T) {
	_, args, err := buildWhere(testSchema(), entity.Filters{
		entity.Substring("name", `50%_\done`),
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, `%50\%\_\\done%`, args[0])
}

// TestPurpose: Validates full SELECT rendering with filters, ordering,
// limit and offset.
// Scope: Unit Test
// Expected: ORDER BY respects descending keys; LIMIT/OFFSET are
// parameterized after the filter arguments.
func TestBuildSelect(t *testing.T) {
	schema := testSchema()

	sql, args, err := buildSelect(schema,
		entity.Filters{entity.Equal("tenant_id", "t1")},
		[]entity.SortKey{{Column: "status"}, {Column: "created_at", Descending: true}},
		20, 40)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM devices WHERE tenant_id = $1 ORDER BY status ASC, created_at DESC LIMIT $2 OFFSET $3",
		sql)
	assert.Equal(t, []any{"t1", 20, 40}, args)
}

// TestPurpose: Validates the minimal SELECT without filters or bounds.
// Scope: Unit Test
// Expected: No WHERE, ORDER BY, LIMIT or OFFSET fragments appear.
func TestBuildSelect_Bare(t *testing.T) {
	sql, args, err := buildSelect(testSchema(), nil, nil, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM devices", sql)
	assert.Empty(t, args)
}

// TestPurpose: Validates ordering keys are allow-listed like filters.
// Scope: Unit Test
// Expected: A sort key on an unknown column is a ValidationError.
func TestBuildSelect_UnknownOrderColumn(t *testing.T) {
	_, _, err := buildSelect(testSchema(), nil,
		[]entity.SortKey{{Column: "evil; --"}}, 0, 0)

	assert.True(t, entity.IsValidation(err))
}

// TestPurpose: Validates unique-violation detection from pgconn errors.
// Scope: Unit Test
// Expected: SQLSTATE 23505 is a unique violation, others are not.
func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.True(t, isUniqueViolation(
		// Wrapped errors still match.
		&entity.ConflictError{Entity: "Device", Err: &pgconn.PgError{Code: "23505"}}))
}
