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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vallestelar/sentinel/internal/entity"
	"github.com/vallestelar/sentinel/internal/model"
	"github.com/vallestelar/sentinel/internal/mqtt"
)

// newIngesterFixture wires an ingester over a registry whose factory
// records every repository it builds, so tests can inspect what a scoped
// create stored. createErr, when set, fails every create.
func newIngesterFixture(createErr error) (*TelemetryIngester, *[]*memRepository) {
	var repos []*memRepository
	factory := func(_ entity.Schema, defaults entity.Filters) entity.Repository {
		repo := newMemRepository(defaults)
		repo.createErr = createErr
		repos = append(repos, repo)
		return repo
	}
	registry := entity.NewRegistry(factory, model.Schemas()...)
	return NewTelemetryIngester(registry, "sentinel"), &repos
}

// TestPurpose: Validates the wildcard subscription filter covering every
// tenant's sensor topics.
// Scope: Unit Test
// Expected: prefix/+/sensors/+/readings.
func TestTelemetry_TopicFilter(t *testing.T) {
	ing, _ := newIngesterFixture(nil)

	assert.Equal(t, "sentinel/+/sensors/+/readings", ing.TopicFilter())
}

// TestPurpose: Validates that a published reading lands in storage scoped to
// the tenant named by its topic, with the sensor id taken from the topic
// rather than the payload.
// Scope: Unit Test
// Security: Multi-tenant Data Separation (CWE-284)
// Expected: One record created under a tenant-a scoped repository carrying
// the topic's sensor id and the payload's value, ts and quality.
func TestTelemetry_Handle_IngestsReading(t *testing.T) {
	ing, repos := newIngesterFixture(nil)

	err := ing.Handle(
		"sentinel/tenant-a/sensors/sens-7/readings",
		[]byte(`{"site_id":"site-1","ts":"2026-08-30T12:05:00Z","value":21.5,"quality":"good"}`),
	)
	require.NoError(t, err)

	require.Len(t, *repos, 1)
	repo := (*repos)[0]
	assert.Equal(t, entity.Filters{entity.Equal("tenant_id", "tenant-a")}, repo.defaults)

	require.Len(t, repo.created, 1)
	rec := repo.created[0]
	assert.Equal(t, "tenant-a", rec.String("tenant_id"))
	assert.Equal(t, "sens-7", rec.String("sensor_id"))
	assert.Equal(t, "site-1", rec.String("site_id"))
	assert.Equal(t, 21.5, rec["value"])
	assert.Equal(t, time.Date(2026, 8, 30, 12, 5, 0, 0, time.UTC), rec.Time("ts"))
}

// TestPurpose: Validates defaulting for sparse payloads: devices may omit
// the timestamp and quality.
// Scope: Unit Test
// Expected: ts defaults to roughly now and quality to good.
func TestTelemetry_Handle_DefaultsTimestampAndQuality(t *testing.T) {
	ing, repos := newIngesterFixture(nil)

	err := ing.Handle(
		"sentinel/tenant-a/sensors/sens-7/readings",
		[]byte(`{"site_id":"site-1","value":3.2}`),
	)
	require.NoError(t, err)

	rec := (*repos)[0].created[0]
	assert.Equal(t, "good", rec.String("quality"))
	assert.WithinDuration(t, time.Now(), rec.Time("ts"), 5*time.Second)
}

// TestPurpose: Validates that a duplicate sample is treated as broker
// redelivery, not a failure: MQTT QoS 1 delivers at least once.
// Scope: Unit Test
// Expected: A uniqueness conflict from storage is swallowed; any other
// storage error propagates.
func TestTelemetry_Handle_DuplicateRedelivery(t *testing.T) {
	ing, _ := newIngesterFixture(&entity.ConflictError{Entity: "SensorReading"})

	err := ing.Handle(
		"sentinel/tenant-a/sensors/sens-7/readings",
		[]byte(`{"site_id":"site-1","value":1}`),
	)
	assert.NoError(t, err)

	ing, _ = newIngesterFixture(errors.New("connection reset"))
	err = ing.Handle(
		"sentinel/tenant-a/sensors/sens-7/readings",
		[]byte(`{"site_id":"site-1","value":1}`),
	)
	assert.Error(t, err)
}

// TestPurpose: Validates rejection of malformed topics and payloads before
// anything reaches storage.
// Scope: Unit Test
// Expected: Wrong prefix, wrong segment count, wrong segment names and
// invalid JSON all error without creating records.
func TestTelemetry_Handle_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"wrong prefix", "other/tenant-a/sensors/sens-7/readings", `{"value":1}`},
		{"too few segments", "sentinel/tenant-a/readings", `{"value":1}`},
		{"too many segments", "sentinel/tenant-a/sensors/sens-7/readings/extra", `{"value":1}`},
		{"not a sensors topic", "sentinel/tenant-a/actuators/act-1/readings", `{"value":1}`},
		{"wrong leaf", "sentinel/tenant-a/sensors/sens-7/commands", `{"value":1}`},
		{"invalid json", "sentinel/tenant-a/sensors/sens-7/readings", `{"value":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing, repos := newIngesterFixture(nil)
			err := ing.Handle(tt.topic, []byte(tt.payload))
			assert.Error(t, err)
			for _, repo := range *repos {
				assert.Empty(t, repo.created)
			}
		})
	}
}

// TestPurpose: Validates that Start registers the ingester's handler on the
// broker under the wildcard filter.
// Scope: Unit Test
// Expected: Exactly one subscription on the topic filter.
func TestTelemetry_Start(t *testing.T) {
	ing, _ := newIngesterFixture(nil)
	sub := &recordingSubscriber{}

	require.NoError(t, ing.Start(sub))
	require.Len(t, sub.topics, 1)
	assert.Equal(t, "sentinel/+/sensors/+/readings", sub.topics[0])
	require.NotNil(t, sub.handlers[0])

	// The registered handler must be live, not a copy of a zero ingester.
	err := sub.handlers[0](
		"sentinel/tenant-a/sensors/sens-7/readings",
		[]byte(`{"site_id":"site-1","value":2}`),
	)
	assert.NoError(t, err)
}

type recordingSubscriber struct {
	topics   []string
	handlers []mqtt.MessageHandler
}

func (s *recordingSubscriber) Subscribe(topic string, handler mqtt.MessageHandler) error {
	s.topics = append(s.topics, topic)
	s.handlers = append(s.handlers, handler)
	return nil
}
