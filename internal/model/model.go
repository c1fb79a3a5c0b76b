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

// Package model catalogs every persisted fleet entity type. Each schema
// names its table, settable columns, free-text search column and tenant
// scoping column; the generic repository and the HTTP layer are driven
// entirely by this catalog.
package model

import "github.com/vallestelar/sentinel/internal/entity"

// Entity type tokens.
const (
	TypeTenant             = "tenant"
	TypeSite               = "site"
	TypeUser               = "user"
	TypeUserMembership     = "user_membership"
	TypeDevice             = "device"
	TypeSensor             = "sensor"
	TypeActuator           = "actuator"
	TypeTank               = "tank"
	TypePump               = "pump"
	TypeIrrigationZone     = "irrigation_zone"
	TypeIrrigationSchedule = "irrigation_schedule"
	TypeRule               = "rule"
	TypeCommand            = "command"
	TypeEvent              = "event"
	TypeSensorReading      = "sensor_reading"
	TypeDailyMetric        = "daily_metric"
	TypeSecurityMode       = "security_mode"
	TypeEnergySystem       = "energy_system"
)

// withAudit appends the actor-label columns every table carries.
func withAudit(cols ...string) []string {
	return append(cols, "created_by", "updated_by")
}

// Schemas returns the full entity catalog in mount order.
func Schemas() []entity.Schema {
	return []entity.Schema{
		{
			Type:         TypeTenant,
			Label:        "Tenant",
			Table:        "tenants",
			Path:         "tenants",
			Columns:      withAudit("name", "rut", "plan", "status", "metadata"),
			SearchColumn: "name",
			// A tenant is scoped by its own identifier: an authenticated
			// request only ever sees the tenant it was issued for.
			TenantColumn: "id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeSite,
			Label:        "Site",
			Table:        "sites",
			Path:         "sites",
			Columns:      withAudit("tenant_id", "name", "address_text", "timezone", "lat", "lng", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeUser,
			Label:        "User",
			Table:        "users",
			Path:         "users",
			Columns:      withAudit("email", "password_hash", "full_name", "status", "metadata"),
			SearchColumn: "email",
			// Users are global; tenancy attaches through memberships.
			TenantColumn: "",
			DefaultOrder: []string{"email"},
		},
		{
			Type:         TypeUserMembership,
			Label:        "UserMembership",
			Table:        "user_memberships",
			Path:         "user-memberships",
			Columns:      withAudit("tenant_id", "user_id", "role", "metadata"),
			SearchColumn: "role",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-created_at"},
		},
		{
			Type:         TypeDevice,
			Label:        "Device",
			Table:        "devices",
			Path:         "devices",
			Columns:      withAudit("tenant_id", "site_id", "name", "device_type", "serial", "fw_version", "status", "last_seen_at", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeSensor,
			Label:        "Sensor",
			Table:        "sensors",
			Path:         "sensors",
			Columns:      withAudit("tenant_id", "site_id", "device_id", "name", "sensor_type", "unit", "calibration_json", "is_enabled", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeActuator,
			Label:        "Actuator",
			Table:        "actuators",
			Path:         "actuators",
			Columns:      withAudit("tenant_id", "site_id", "device_id", "name", "actuator_type", "channel", "state", "is_enabled", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeTank,
			Label:        "Tank",
			Table:        "tanks",
			Path:         "tanks",
			Columns:      withAudit("tenant_id", "site_id", "name", "capacity_liters", "shape", "height_cm", "min_level_pct_alert", "critical_level_pct_alert", "sensor_level_id", "sensor_pressure_id", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypePump,
			Label:        "Pump",
			Table:        "pumps",
			Path:         "pumps",
			Columns:      withAudit("tenant_id", "site_id", "name", "actuator_id", "mode", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeIrrigationZone,
			Label:        "IrrigationZone",
			Table:        "irrigation_zones",
			Path:         "irrigation-zones",
			Columns:      withAudit("tenant_id", "site_id", "name", "actuator_id", "sensor_moisture_id", "sensor_flow_id", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeIrrigationSchedule,
			Label:        "IrrigationSchedule",
			Table:        "irrigation_schedules",
			Path:         "irrigation-schedules",
			Columns:      withAudit("tenant_id", "site_id", "zone_id", "cron", "duration_seconds", "is_enabled", "metadata"),
			SearchColumn: "cron",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-created_at"},
		},
		{
			Type:         TypeRule,
			Label:        "Rule",
			Table:        "rules",
			Path:         "rules",
			Columns:      withAudit("tenant_id", "site_id", "name", "area", "condition_json", "action_json", "is_enabled", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
		{
			Type:         TypeCommand,
			Label:        "Command",
			Table:        "commands",
			Path:         "commands",
			Columns:      withAudit("tenant_id", "site_id", "actuator_id", "command_type", "payload", "status", "requested_by_id", "sent_at", "acked_at", "metadata"),
			SearchColumn: "command_type",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-created_at"},
		},
		{
			Type:         TypeEvent,
			Label:        "Event",
			Table:        "events",
			Path:         "events",
			Columns:      withAudit("tenant_id", "site_id", "event_type", "severity", "source_type", "source_id", "ts", "title", "description", "ack_status", "ack_by_id", "ack_at", "meta"),
			SearchColumn: "title",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-ts"},
		},
		{
			Type:         TypeSensorReading,
			Label:        "SensorReading",
			Table:        "sensor_readings_5m",
			Path:         "sensor-readings",
			Columns:      withAudit("tenant_id", "site_id", "sensor_id", "ts", "value", "quality", "meta"),
			SearchColumn: "quality",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-ts"},
		},
		{
			Type:         TypeDailyMetric,
			Label:        "DailyMetric",
			Table:        "daily_metrics",
			Path:         "daily-metrics",
			Columns:      withAudit("tenant_id", "site_id", "metric_date", "metric_key", "value", "meta"),
			SearchColumn: "metric_key",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-metric_date"},
		},
		{
			Type:         TypeSecurityMode,
			Label:        "SecurityMode",
			Table:        "security_modes",
			Path:         "security-modes",
			Columns:      withAudit("tenant_id", "site_id", "mode", "is_armed", "metadata"),
			SearchColumn: "mode",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"-updated_at"},
		},
		{
			Type:         TypeEnergySystem,
			Label:        "EnergySystem",
			Table:        "energy_systems",
			Path:         "energy-systems",
			Columns:      withAudit("tenant_id", "site_id", "name", "battery_capacity_ah", "sensor_battery_voltage_id", "sensor_solar_power_id", "metadata"),
			SearchColumn: "name",
			TenantColumn: "tenant_id",
			DefaultOrder: []string{"name"},
		},
	}
}
