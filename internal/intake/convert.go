package intake

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/eventrepo"
	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
)

// toCapturedEvent converts a wire event into the internal representation.
// ID and BlockHeight are stamped by the store at admission.
func toCapturedEvent(msg *messages.Event) (*types.CapturedEvent, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	severity := types.SeverityInfo
	if msg.Severity != "" {
		var err error
		severity, err = types.ParseSeverity(msg.Severity)
		if err != nil {
			return nil, err
		}
	}
	return &types.CapturedEvent{
		SourceApp:       msg.SourceApp,
		SourceChain:     msg.SourceChain,
		Timestamp:       msg.Timestamp,
		EventType:       msg.EventType,
		Data:            msg.Data,
		TransactionHash: msg.TransactionHash,
		BlockHeight:     msg.BlockHeight,
		Severity:        severity,
	}, nil
}

// toMetricDefinition converts a wire metric definition.
func toMetricDefinition(msg *messages.MetricDefine) (types.MetricDefinition, error) {
	kind, err := types.ParseMetricKind(msg.Kind)
	if err != nil {
		return types.MetricDefinition{}, err
	}
	agg := types.AggregationMethod(msg.Aggregation)
	switch agg {
	case types.AggregationSum, types.AggregationAverage, types.AggregationMin,
		types.AggregationMax, types.AggregationLast:
	case "":
		agg = types.AggregationLast
	default:
		return types.MetricDefinition{}, fmt.Errorf("unknown aggregation method: %q", msg.Aggregation)
	}
	return types.MetricDefinition{
		Name:           msg.Name,
		Description:    msg.Description,
		Kind:           kind,
		ExtractionPath: msg.ExtractionPath,
		Aggregation:    agg,
	}, nil
}

// toAppConfig converts a wire application registration.
func toAppConfig(msg *messages.AppAdd) (types.AppConfig, error) {
	custom := make([]types.MetricDefinition, 0, len(msg.CustomMetrics))
	for i := range msg.CustomMetrics {
		def, err := toMetricDefinition(&msg.CustomMetrics[i])
		if err != nil {
			return types.AppConfig{}, fmt.Errorf("custom metric %q: %w", msg.CustomMetrics[i].Name, err)
		}
		custom = append(custom, def)
	}
	cfg := types.NewAppConfig(msg.ApplicationID, msg.ChainID, msg.Endpoint)
	cfg.Enabled = msg.Enabled
	cfg.Priority = msg.Priority
	cfg.Tags = msg.Tags
	if len(custom) > 0 {
		cfg.CustomMetrics = custom
	}
	return cfg, nil
}

// toEventRow converts an admitted event into its archive row.
func toEventRow(e *types.CapturedEvent) *eventrepo.EventRow {
	var height uint64
	if e.BlockHeight != nil {
		height = *e.BlockHeight
	}
	hash := e.ContentHash()
	return &eventrepo.EventRow{
		ID:              e.ID,
		SourceApp:       e.SourceApp,
		SourceChain:     e.SourceChain,
		Timestamp:       time.UnixMilli(int64(e.Timestamp)).UTC(),
		EventType:       e.EventType,
		Data:            string(e.Data),
		TransactionHash: e.TransactionHash,
		BlockHeight:     height,
		Severity:        e.Severity.String(),
		ContentHash:     hex.EncodeToString(hash[:]),
	}
}

// toAlert converts an admitted event into its alert payload.
func toAlert(e *types.CapturedEvent) *messages.Alert {
	return &messages.Alert{
		EventID:         e.ID,
		SourceApp:       e.SourceApp,
		SourceChain:     e.SourceChain,
		EventType:       e.EventType,
		Severity:        e.Severity.String(),
		Timestamp:       e.Timestamp,
		TransactionHash: e.TransactionHash,
	}
}
