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

// Package command turns persisted actuator commands into broker messages
// and streams sensor telemetry back into storage.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vallestelar/sentinel/internal/audit"
	"github.com/vallestelar/sentinel/internal/entity"
	"github.com/vallestelar/sentinel/internal/observability/logger"
)

// Command statuses
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Publisher is the broker surface the dispatcher needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// wireCommand is the payload an actuator receives.
type wireCommand struct {
	ID          string         `json:"id"`
	CommandType string         `json:"command_type"`
	Payload     map[string]any `json:"payload,omitempty"`
	IssuedAt    time.Time      `json:"issued_at"`
}

// DispatcherService wraps the generic command service: Create also pushes
// the command to the actuator's topic and records the outcome on the row.
type DispatcherService struct {
	*entity.GenericService
	publisher   Publisher
	topicPrefix string
	auditLogger audit.Logger
}

// NewDispatcherService builds the override constructor the registry mounts
// for the command entity.
func NewDispatcherService(publisher Publisher, topicPrefix string, auditLogger audit.Logger) entity.Constructor {
	return func(schema entity.Schema, repo entity.Repository) entity.Service {
		return &DispatcherService{
			GenericService: entity.NewGenericService(schema, repo),
			publisher:      publisher,
			topicPrefix:    topicPrefix,
			auditLogger:    auditLogger,
		}
	}
}

// Topic renders the per-actuator command topic.
func (s *DispatcherService) Topic(tenantID, actuatorID string) string {
	return fmt.Sprintf("%s/%s/actuators/%s/commands", s.topicPrefix, tenantID, actuatorID)
}

// Create persists the command, publishes it and marks it sent. A publish
// failure leaves the row in status failed rather than erroring the request:
// the command exists and can be retried.
func (s *DispatcherService) Create(ctx context.Context, fields entity.Record) (entity.Record, error) {
	if fields["status"] == nil {
		fields = fields.Clone()
		fields["status"] = StatusPending
	}
	rec, err := s.GenericService.Create(ctx, fields)
	if err != nil {
		return nil, err
	}

	tenantID := rec.String("tenant_id")
	actuatorID := rec.String("actuator_id")
	topic := s.Topic(tenantID, actuatorID)

	payload, err := json.Marshal(wireCommand{
		ID:          rec.ID(),
		CommandType: rec.String("command_type"),
		Payload:     asMap(rec["payload"]),
		IssuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return rec, fmt.Errorf("failed to encode command payload: %w", err)
	}

	if err := s.publisher.Publish(topic, payload); err != nil {
		slog.ErrorContext(ctx, "command publish failed",
			logger.Component("command"),
			logger.CommandID(rec.ID()),
			logger.Topic(topic),
			logger.Error(err),
		)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeCommandFailed,
			TenantID: tenantID,
			Resource: rec.ID(),
			Metadata: map[string]any{
				audit.AttrActuator: actuatorID,
				audit.AttrReason:   err.Error(),
			},
		})
		return s.markStatus(ctx, rec, StatusFailed, nil)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeCommandDispatched,
		TenantID: tenantID,
		Resource: rec.ID(),
		Metadata: map[string]any{
			audit.AttrActuator: actuatorID,
			audit.AttrCommand:  rec.String("command_type"),
		},
	})
	now := time.Now().UTC()
	return s.markStatus(ctx, rec, StatusSent, &now)
}

func (s *DispatcherService) markStatus(ctx context.Context, rec entity.Record, status string, sentAt *time.Time) (entity.Record, error) {
	fields := entity.Record{"status": status}
	if sentAt != nil {
		fields["sent_at"] = *sentAt
	}
	updated, err := s.GenericService.Update(ctx, rec.ID(), fields)
	if err != nil || updated == nil {
		// The command row is already persisted; report it as created even
		// when the status update lost a race.
		return rec, nil
	}
	return updated, nil
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
