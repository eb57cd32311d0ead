// Package messages defines the wire payloads carried inside operation
// envelopes on the monitor topics, decoupled from the service's internal
// types so producers and consumers can evolve independently.
package messages

import (
	"encoding/json"
	"fmt"
)

// Envelope type values understood by the intake pipeline.
const (
	TypeEventCapture    = "event.capture"
	TypeEventBatch      = "event.batch"
	TypeMetricDefine    = "metric.define"
	TypeMetricUpdate    = "metric.update"
	TypeRoleAssign      = "role.assign"
	TypeRoleRemove      = "role.remove"
	TypeRateLimitSet    = "ratelimit.set"
	TypeRateLimitUpdate = "ratelimit.update"
	TypeAppAdd          = "app.add"
	TypeAppUpdate       = "app.update"
	TypeAppRemove       = "app.remove"
	TypeIngestPause     = "ingest.pause"
	TypeIngestResume    = "ingest.resume"
	TypeIngestUnblock   = "ingest.unblock"
	TypeEventsClear     = "events.clear"
	TypeMerkleRebuild   = "merkle.rebuild"
	TypeAdminTransfer   = "admin.transfer"
)

// Event is one captured event on the wire. Severity carries its lowercase
// name.
type Event struct {
	SourceApp       string          `json:"source_app"`
	SourceChain     string          `json:"source_chain"`
	Timestamp       uint64          `json:"timestamp"`
	EventType       string          `json:"event_type"`
	Data            json.RawMessage `json:"data"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	BlockHeight     *uint64         `json:"block_height,omitempty"`
	Severity        string          `json:"severity"`
}

// Validate checks the fields the intake pipeline cannot default.
func (e *Event) Validate() error {
	if e.SourceApp == "" {
		return fmt.Errorf("event missing source_app")
	}
	if e.EventType == "" {
		return fmt.Errorf("event missing event_type")
	}
	return nil
}

// EventBatch groups events submitted together. Admission continues past
// per-event rejections.
type EventBatch struct {
	Events []*Event `json:"events"`
}

// MetricDefine registers a metric definition.
type MetricDefine struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Kind           string `json:"kind"`
	ExtractionPath string `json:"extraction_path,omitempty"`
	Aggregation    string `json:"aggregation"`
}

// MetricUpdate records a new value for an application-scoped metric. Value is
// the tagged-union encoding of the metric value.
type MetricUpdate struct {
	AppID     string          `json:"app_id"`
	Metric    string          `json:"metric"`
	Value     json.RawMessage `json:"value"`
	Timestamp uint64          `json:"timestamp"`
}

// RoleAssign grants Target a role by name.
type RoleAssign struct {
	Target string `json:"target"`
	Role   string `json:"role"`
}

// RoleRemove reverts Target to the default role.
type RoleRemove struct {
	Target string `json:"target"`
}

// RateLimitSet replaces the whole rate-limit configuration.
type RateLimitSet struct {
	MaxEventsPerBlock       uint64  `json:"max_events_per_block"`
	GlobalMaxEventsPerBlock uint64  `json:"global_max_events_per_block"`
	BurstMultiplier         float64 `json:"burst_multiplier"`
	CooldownBlocks          uint64  `json:"cooldown_blocks"`
	Enabled                 bool    `json:"enabled"`
}

// RateLimitUpdate is a partial rate-limit change; absent fields keep their
// current value.
type RateLimitUpdate struct {
	MaxEventsPerBlock       *uint64  `json:"max_events_per_block,omitempty"`
	GlobalMaxEventsPerBlock *uint64  `json:"global_max_events_per_block,omitempty"`
	BurstMultiplier         *float64 `json:"burst_multiplier,omitempty"`
	CooldownBlocks          *uint64  `json:"cooldown_blocks,omitempty"`
	Enabled                 *bool    `json:"enabled,omitempty"`
}

// AppAdd registers an application for monitoring.
type AppAdd struct {
	ApplicationID string         `json:"application_id"`
	ChainID       string         `json:"chain_id"`
	Endpoint      string         `json:"endpoint"`
	Enabled       bool           `json:"enabled"`
	CustomMetrics []MetricDefine `json:"custom_metrics,omitempty"`
	Priority      uint8          `json:"priority,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// AppUpdate replaces the configuration of a registered application.
type AppUpdate struct {
	ApplicationID string         `json:"application_id"`
	ChainID       string         `json:"chain_id"`
	Endpoint      string         `json:"endpoint"`
	Enabled       bool           `json:"enabled"`
	CustomMetrics []MetricDefine `json:"custom_metrics,omitempty"`
	Priority      uint8          `json:"priority,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// AppRemove drops an application from the registry.
type AppRemove struct {
	ApplicationID string `json:"application_id"`
}

// IngestUnblock clears a rate-limit cooldown.
type IngestUnblock struct {
	AppID string `json:"app_id"`
}

// AdminTransfer hands the super admin role to a new identity.
type AdminTransfer struct {
	NewSuperAdmin string `json:"new_super_admin"`
}

// Decode unmarshals an envelope payload into the given wire type.
func Decode[T any](data json.RawMessage) (*T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", msg, err)
	}
	return &msg, nil
}
