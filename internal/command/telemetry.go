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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vallestelar/sentinel/internal/entity"
	"github.com/vallestelar/sentinel/internal/model"
	"github.com/vallestelar/sentinel/internal/mqtt"
	"github.com/vallestelar/sentinel/internal/observability/logger"
)

// Subscriber is the broker surface the ingester needs.
type Subscriber interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
}

// wireReading is the payload a device publishes per sample.
type wireReading struct {
	SiteID  string    `json:"site_id"`
	TS      time.Time `json:"ts"`
	Value   float64   `json:"value"`
	Quality string    `json:"quality,omitempty"`
}

// TelemetryIngester persists sensor readings arriving on the broker. One
// instance serves all tenants; the topic names the tenant and sensor.
type TelemetryIngester struct {
	registry    *entity.Registry
	topicPrefix string
}

// NewTelemetryIngester creates a new ingester bound to the registry.
func NewTelemetryIngester(registry *entity.Registry, topicPrefix string) *TelemetryIngester {
	return &TelemetryIngester{registry: registry, topicPrefix: topicPrefix}
}

// TopicFilter is the wildcard subscription covering every tenant's sensors.
func (t *TelemetryIngester) TopicFilter() string {
	return fmt.Sprintf("%s/+/sensors/+/readings", t.topicPrefix)
}

// Start subscribes the ingester on the broker.
func (t *TelemetryIngester) Start(sub Subscriber) error {
	return sub.Subscribe(t.TopicFilter(), t.Handle)
}

// Handle ingests one published reading. The topic is expected to be
// {prefix}/{tenant}/sensors/{sensor}/readings.
func (t *TelemetryIngester) Handle(topic string, payload []byte) error {
	tenantID, sensorID, err := t.parseTopic(topic)
	if err != nil {
		return err
	}

	var reading wireReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("failed to decode reading on %s: %w", topic, err)
	}
	if reading.TS.IsZero() {
		reading.TS = time.Now().UTC()
	}
	if reading.Quality == "" {
		reading.Quality = "good"
	}

	svc, err := t.registry.Get(model.TypeSensorReading, entity.Equal("tenant_id", tenantID))
	if err != nil {
		return err
	}

	ctx := context.Background()
	rec, err := svc.Create(ctx, entity.Record{
		"site_id":   reading.SiteID,
		"sensor_id": sensorID,
		"ts":        reading.TS,
		"value":     reading.Value,
		"quality":   reading.Quality,
	})
	if err != nil {
		if entity.IsConflict(err) {
			// Duplicate sample for the same instant; brokers redeliver.
			return nil
		}
		return fmt.Errorf("failed to store reading for sensor %s: %w", sensorID, err)
	}

	slog.DebugContext(ctx, "reading ingested",
		logger.Component("telemetry"),
		logger.TenantID(tenantID),
		logger.SensorID(sensorID),
		logger.RecordID(rec.ID()),
	)
	return nil
}

func (t *TelemetryIngester) parseTopic(topic string) (tenantID, sensorID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != t.topicPrefix || parts[2] != "sensors" || parts[4] != "readings" {
		return "", "", fmt.Errorf("unexpected telemetry topic %q", topic)
	}
	return parts[1], parts[3], nil
}
