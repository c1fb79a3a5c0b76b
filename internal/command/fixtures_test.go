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

package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/vallestelar/sentinel/internal/audit"
	"github.com/vallestelar/sentinel/internal/entity"
)

// memRepository is a minimal in-memory entity.Repository: enough for the
// dispatcher and telemetry paths (create with default stamping, update by
// id). createErr, when set, fails every Create with that error.
type memRepository struct {
	mu        sync.Mutex
	seq       int
	rows      map[string]entity.Record
	defaults  entity.Filters
	createErr error
	created   []entity.Record
}

func newMemRepository(defaults entity.Filters) *memRepository {
	return &memRepository{rows: map[string]entity.Record{}, defaults: defaults}
}

func (r *memRepository) Create(_ context.Context, fields entity.Record) (entity.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	rec := fields.Clone()
	for _, f := range r.defaults {
		if f.Op == entity.OpEqual && f.Column != "id" {
			rec[f.Column] = f.Value
		}
	}
	if rec.ID() == "" {
		r.seq++
		rec["id"] = fmt.Sprintf("rec-%d", r.seq)
	}
	r.rows[rec.ID()] = rec
	r.created = append(r.created, rec.Clone())
	return rec.Clone(), nil
}

func (r *memRepository) Get(_ context.Context, id string) (entity.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (r *memRepository) Update(_ context.Context, id string, fields entity.Record) (entity.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return rec.Clone(), nil
}

func (r *memRepository) Delete(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

func (r *memRepository) List(_ context.Context, _ entity.ListQuery) ([]entity.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Record, 0, len(r.rows))
	for _, rec := range r.rows {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *memRepository) Count(_ context.Context, _ entity.Filters) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memRepository) ListPaginated(ctx context.Context, page, pageSize int, _ entity.Filters, _ []entity.SortKey) (*entity.PageResult, error) {
	items, err := r.List(ctx, entity.ListQuery{})
	if err != nil {
		return nil, err
	}
	page = entity.ClampPage(page)
	pageSize = entity.ClampPageSize(pageSize)
	total := int64(len(items))
	return &entity.PageResult{
		Items: items, Total: total, Page: page, PageSize: pageSize,
		Pages: entity.PageCount(total, pageSize),
	}, nil
}

// recordingPublisher captures published messages; err, when set, fails
// every publish.
type recordingPublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

// capturingAudit collects audit events for assertions.
type capturingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *capturingAudit) Log(_ context.Context, event audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturingAudit) byType(eventType string) []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []audit.Event
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
