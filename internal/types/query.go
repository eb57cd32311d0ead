package types

import (
	"strings"

	"github.com/chainsentry/eventmonitor/pkg/merkle"
	"github.com/chainsentry/eventmonitor/pkg/rbac"
	"github.com/chainsentry/eventmonitor/pkg/stats"
)

// TimeRange bounds a query in time, inclusive on both ends.
type TimeRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Contains reports whether ts falls inside the range.
func (r TimeRange) Contains(ts uint64) bool {
	return ts >= r.Start && ts <= r.End
}

// DefaultPageLimit caps list queries that do not request an explicit limit.
const DefaultPageLimit = 100

// Pagination selects a window of a list query result.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Normalize returns a copy with a positive limit applied.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// EventFilters narrows event list queries. Nil/empty fields match everything.
type EventFilters struct {
	AppIDs     []string   `json:"app_ids,omitempty"`
	EventTypes []string   `json:"event_types,omitempty"`
	TimeRange  *TimeRange `json:"time_range,omitempty"`
	Severity   *Severity  `json:"severity,omitempty"`
	SearchText string     `json:"search_text,omitempty"`
}

// Match reports whether the event passes every populated filter. Text search
// is a case-insensitive substring match over the raw payload.
func (f EventFilters) Match(e *CapturedEvent) bool {
	if len(f.AppIDs) > 0 && !contains(f.AppIDs, e.SourceApp) {
		return false
	}
	if len(f.EventTypes) > 0 && !contains(f.EventTypes, e.EventType) {
		return false
	}
	if f.TimeRange != nil && !f.TimeRange.Contains(e.Timestamp) {
		return false
	}
	if f.Severity != nil && e.Severity != *f.Severity {
		return false
	}
	if f.SearchText != "" {
		if !strings.Contains(strings.ToLower(string(e.Data)), strings.ToLower(f.SearchText)) {
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// AggregationQuery asks for an aggregate over the stored metric values whose
// key contains Metric.
type AggregationQuery struct {
	Metric        string                `json:"metric"`
	Aggregation   stats.AggregationKind `json:"aggregation"`
	StartTime     uint64                `json:"start_time"`
	EndTime       uint64                `json:"end_time"`
	GranularityMs uint64                `json:"granularity_ms"`
	AppFilter     []string              `json:"app_filter,omitempty"`
}

// AggregatedResult carries the outcome of an AggregationQuery.
type AggregatedResult struct {
	Metric      string                `json:"metric"`
	Aggregation stats.AggregationKind `json:"aggregation"`
	Value       float64               `json:"value"`
	Bucket      *stats.Bucket         `json:"bucket,omitempty"`
	SampleCount int                   `json:"sample_count"`
}

// TimeSeriesPoint is one bucketed sample of a metric over time.
type TimeSeriesPoint struct {
	Timestamp uint64      `json:"timestamp"`
	Value     MetricValue `json:"value"`
}

// CorrelationMatrix is a row-major NxN matrix of Pearson coefficients over
// the named metrics. The diagonal is always 1.
type CorrelationMatrix struct {
	Metrics      []string  `json:"metrics"`
	Coefficients []float64 `json:"coefficients"`
}

// RBACInfo is the read-only projection of one identity's authorization state.
type RBACInfo struct {
	Role        rbac.Role         `json:"role"`
	Permissions []rbac.Permission `json:"permissions"`
}

// SystemHealth is a coarse status projection over the whole core.
type SystemHealth struct {
	TotalEvents       uint64       `json:"total_events"`
	TotalApplications int          `json:"total_applications"`
	MerkleRoot        *merkle.Hash `json:"merkle_root,omitempty"`
	RateLimitEnabled  bool         `json:"rate_limit_enabled"`
	IngestionPaused   bool         `json:"ingestion_paused"`
}
