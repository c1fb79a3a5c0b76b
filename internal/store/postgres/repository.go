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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vallestelar/sentinel/internal/entity"
	"github.com/vallestelar/sentinel/internal/id"
)

// Repository is the generic schema-driven implementation of
// entity.Repository. One instance serves one entity type; the default
// filters bound at construction are ANDed into every statement it issues,
// which is what enforces tenant isolation at the storage boundary.
type Repository struct {
	db       *DB
	schema   entity.Schema
	defaults entity.Filters
	snapshot bool
}

// NewRepository builds a repository for one schema. defaults may be nil for
// an unscoped repository.
func NewRepository(db *DB, schema entity.Schema, defaults entity.Filters) *Repository {
	return &Repository{db: db, schema: schema, defaults: defaults}
}

// Factory adapts this package to the registry's construction hook.
// snapshot selects repeatable-read pagination (count and page fetch in one
// read-only transaction) instead of two independent queries.
func Factory(db *DB, snapshot bool) entity.RepositoryFactory {
	return func(schema entity.Schema, defaults entity.Filters) entity.Repository {
		r := NewRepository(db, schema, defaults)
		r.snapshot = snapshot
		return r
	}
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Create persists a new record, generating a UUIDv7 identifier when absent.
func (r *Repository) Create(ctx context.Context, fields entity.Record) (entity.Record, error) {
	if err := r.validateColumns(fields); err != nil {
		return nil, err
	}

	rec := fields.Clone()
	if rec.ID() == "" {
		rec["id"] = id.NewUUIDv7()
	}
	// Scoped repositories stamp their binding onto new rows so a caller
	// can never write into another tenant's partition.
	for _, f := range r.defaults {
		if f.Op == entity.OpEqual && f.Column != "id" {
			rec[f.Column] = f.Value
		}
	}
	now := time.Now().UTC()
	rec["created_at"] = now
	rec["updated_at"] = now

	cols := make([]string, 0, len(rec))
	placeholders := make([]string, 0, len(rec))
	args := make([]any, 0, len(rec))
	for col, val := range rec {
		cols = append(cols, col)
		args = append(args, val)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		r.schema.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	stored, err := r.queryOne(ctx, r.db.pool, sql, args)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &entity.ConflictError{Entity: r.schema.Label, Err: err}
		}
		return nil, fmt.Errorf("failed to insert %s: %w", r.schema.Type, err)
	}
	return stored, nil
}

// Get returns the record matching id under the default filters, or nil.
func (r *Repository) Get(ctx context.Context, recordID string) (entity.Record, error) {
	where, args, err := buildWhere(r.schema, r.idFilters(recordID), 0)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s", r.schema.Table, where)

	rec, err := r.queryOne(ctx, r.db.pool, sql, args)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.schema.Type, err)
	}
	return rec, nil
}

// Update merges the supplied fields into the matching record. Columns not
// supplied keep their stored values. Returns nil when no row matches under
// the default filters.
func (r *Repository) Update(ctx context.Context, recordID string, fields entity.Record) (entity.Record, error) {
	if err := r.validateColumns(fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return r.Get(ctx, recordID)
	}

	args := make([]any, 0, len(fields)+2)
	sets := make([]string, 0, len(fields)+1)
	for col, val := range fields {
		if col == "id" || r.isDefaultColumn(col) {
			// Identifier and scope columns are immutable through updates.
			continue
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return r.Get(ctx, recordID)
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	where, args2, err := buildWhere(r.schema, r.idFilters(recordID), len(args))
	if err != nil {
		return nil, err
	}
	args = append(args, args2...)

	sql := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s RETURNING *",
		r.schema.Table, strings.Join(sets, ", "), where,
	)

	rec, err := r.queryOne(ctx, r.db.pool, sql, args)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &entity.ConflictError{Entity: r.schema.Label, Err: err}
		}
		return nil, fmt.Errorf("failed to update %s: %w", r.schema.Type, err)
	}
	return rec, nil
}

// Delete removes rows matching id under the default filters and returns the
// count removed. Deleting an absent row is not an error.
func (r *Repository) Delete(ctx context.Context, recordID string) (int64, error) {
	where, args, err := buildWhere(r.schema, r.idFilters(recordID), 0)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", r.schema.Table, where)

	tag, err := r.db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", r.schema.Type, err)
	}
	return tag.RowsAffected(), nil
}

// List returns records matching the default filters merged with the query
// filters.
func (r *Repository) List(ctx context.Context, q entity.ListQuery) ([]entity.Record, error) {
	sql, args, err := buildSelect(r.schema, r.defaults.Merge(q.Filters), q.OrderBy, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return r.queryMany(ctx, r.db.pool, sql, args)
}

// Count returns the number of rows matching the default filters merged with
// the given filters.
func (r *Repository) Count(ctx context.Context, filters entity.Filters) (int64, error) {
	return r.count(ctx, r.db.pool, filters)
}

// ListPaginated clamps the page request, counts the matching rows and
// fetches the bounded page. With snapshot pagination enabled both queries
// run inside one repeatable-read read-only transaction; otherwise totals
// are eventually consistent with the fetched page under concurrent writes.
func (r *Repository) ListPaginated(ctx context.Context, page, pageSize int, filters entity.Filters, orderBy []entity.SortKey) (*entity.PageResult, error) {
	page = entity.ClampPage(page)
	pageSize = entity.ClampPageSize(pageSize)
	if len(orderBy) == 0 {
		orderBy = entity.ParseOrderBy(r.schema.DefaultOrder)
	}

	var q querier = r.db.pool
	var tx pgx.Tx
	if r.snapshot {
		var err error
		tx, err = r.db.pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel:   pgx.RepeatableRead,
			AccessMode: pgx.ReadOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to begin pagination snapshot: %w", err)
		}
		defer tx.Rollback(ctx)
		q = tx
	}

	total, err := r.count(ctx, q, filters)
	if err != nil {
		return nil, err
	}

	sql, args, err := buildSelect(r.schema, r.defaults.Merge(filters), orderBy, pageSize, entity.PageOffset(page, pageSize))
	if err != nil {
		return nil, err
	}
	items, err := r.queryMany(ctx, q, sql, args)
	if err != nil {
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit pagination snapshot: %w", err)
		}
	}

	return &entity.PageResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    entity.PageCount(total, pageSize),
	}, nil
}

func (r *Repository) count(ctx context.Context, q querier, filters entity.Filters) (int64, error) {
	merged := r.defaults.Merge(filters)
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.schema.Table)
	var args []any
	if len(merged) > 0 {
		where, a, err := buildWhere(r.schema, merged, 0)
		if err != nil {
			return 0, err
		}
		sql += " WHERE " + where
		args = a
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.schema.Type, err)
	}
	defer rows.Close()

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, fmt.Errorf("failed to scan %s count: %w", r.schema.Type, err)
		}
	}
	return total, rows.Err()
}

func (r *Repository) isDefaultColumn(col string) bool {
	for _, f := range r.defaults {
		if f.Column == col {
			return true
		}
	}
	return false
}

// idFilters is the WHERE predicate of every by-id operation: the primary
// key ANDed with the non-negotiable default filters.
func (r *Repository) idFilters(recordID string) entity.Filters {
	return r.defaults.Merge(entity.Filters{entity.Equal("id", recordID)})
}

func (r *Repository) validateColumns(fields entity.Record) error {
	for col := range fields {
		if col == "created_at" || col == "updated_at" {
			return &entity.ValidationError{Entity: r.schema.Type, Column: col}
		}
		if !r.schema.HasColumn(col) {
			return &entity.ValidationError{Entity: r.schema.Type, Column: col}
		}
	}
	return nil
}

func (r *Repository) queryOne(ctx context.Context, q querier, sql string, args []any) (entity.Record, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := rowToRecord(rows)
	if err != nil {
		return nil, err
	}
	return rec, rows.Err()
}

func (r *Repository) queryMany(ctx context.Context, q querier, sql string, args []any) ([]entity.Record, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.schema.Type, err)
	}
	defer rows.Close()

	items := make([]entity.Record, 0)
	for rows.Next() {
		rec, err := rowToRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.schema.Type, err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// rowToRecord maps the current row into a Record using the result's field
// descriptions, so one scanner serves every entity table.
func rowToRecord(rows pgx.Rows) (entity.Record, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	fds := rows.FieldDescriptions()
	rec := make(entity.Record, len(fds))
	for i, fd := range fds {
		rec[string(fd.Name)] = values[i]
	}
	return rec, nil
}

// buildWhere renders a validated Filters conjunction starting after
// argOffset positional parameters.
func buildWhere(schema entity.Schema, filters entity.Filters, argOffset int) (string, []any, error) {
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if !schema.HasColumn(f.Column) {
			return "", nil, &entity.ValidationError{Entity: schema.Type, Column: f.Column}
		}
		n := argOffset + len(args) + 1
		switch f.Op {
		case entity.OpSubstring:
			s, _ := f.Value.(string)
			args = append(args, "%"+escapeLike(s)+"%")
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", f.Column, n))
		case entity.OpGTE:
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", f.Column, n))
		case entity.OpLTE:
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", f.Column, n))
		default:
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s = $%d", f.Column, n))
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

// buildSelect renders the full listing statement. limit <= 0 means
// unbounded, offset <= 0 means none.
func buildSelect(schema entity.Schema, filters entity.Filters, orderBy []entity.SortKey, limit, offset int) (string, []any, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", schema.Table)

	var args []any
	if len(filters) > 0 {
		where, a, err := buildWhere(schema, filters, 0)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = a
	}

	if len(orderBy) > 0 {
		terms := make([]string, 0, len(orderBy))
		for _, k := range orderBy {
			if !schema.HasColumn(k.Column) {
				return "", nil, &entity.ValidationError{Entity: schema.Type, Column: k.Column}
			}
			if k.Descending {
				terms = append(terms, k.Column+" DESC")
			} else {
				terms = append(terms, k.Column+" ASC")
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args, nil
}

// escapeLike neutralizes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
