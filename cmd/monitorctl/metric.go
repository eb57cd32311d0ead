package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
)

var defineMetricCmd = &cobra.Command{
	Use:   "define-metric",
	Short: "Register a metric definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := cmd.Flags().GetString("name")
		if err != nil {
			return fmt.Errorf("failed to get name: %w", err)
		}
		description, err := cmd.Flags().GetString("description")
		if err != nil {
			return fmt.Errorf("failed to get description: %w", err)
		}
		kind, err := cmd.Flags().GetString("kind")
		if err != nil {
			return fmt.Errorf("failed to get kind: %w", err)
		}
		extractionPath, err := cmd.Flags().GetString("extraction-path")
		if err != nil {
			return fmt.Errorf("failed to get extraction path: %w", err)
		}
		aggregation, err := cmd.Flags().GetString("aggregation")
		if err != nil {
			return fmt.Errorf("failed to get aggregation: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeMetricDefine, &messages.MetricDefine{
			Name:           name,
			Description:    description,
			Kind:           kind,
			ExtractionPath: extractionPath,
			Aggregation:    aggregation,
		})
	},
}

var updateMetricCmd = &cobra.Command{
	Use:   "update-metric",
	Short: "Record a new value for an application-scoped metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := cmd.Flags().GetString("app")
		if err != nil {
			return fmt.Errorf("failed to get app: %w", err)
		}
		metric, err := cmd.Flags().GetString("metric")
		if err != nil {
			return fmt.Errorf("failed to get metric: %w", err)
		}
		value, err := cmd.Flags().GetString("value")
		if err != nil {
			return fmt.Errorf("failed to get value: %w", err)
		}
		timestamp, err := cmd.Flags().GetUint64("timestamp")
		if err != nil {
			return fmt.Errorf("failed to get timestamp: %w", err)
		}
		if timestamp == 0 {
			timestamp = uint64(time.Now().UnixMilli())
		}
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("metric value is not valid JSON: %s", value)
		}
		return publishEnvelope(cmd, messages.TypeMetricUpdate, &messages.MetricUpdate{
			AppID:     appID,
			Metric:    metric,
			Value:     json.RawMessage(value),
			Timestamp: timestamp,
		})
	},
}

func init() {
	defineMetricCmd.Flags().StringP("name", "n", "", "The metric name")
	defineMetricCmd.Flags().String("description", "", "The metric description")
	defineMetricCmd.Flags().StringP("kind", "k", "gauge", "The metric kind (counter, gauge, histogram, summary)")
	defineMetricCmd.Flags().String("extraction-path", "", "The JSON path the metric is extracted from")
	defineMetricCmd.Flags().String("aggregation", "last", "The aggregation method (sum, average, min, max, last)")
	defineMetricCmd.MarkFlagRequired("name")

	updateMetricCmd.Flags().StringP("app", "a", "", "The application the metric belongs to")
	updateMetricCmd.Flags().StringP("metric", "m", "", "The metric name")
	updateMetricCmd.Flags().String("value", "", `The metric value as tagged-union JSON, e.g. {"gauge":12.5}`)
	updateMetricCmd.Flags().Uint64("timestamp", 0, "The observation timestamp in milliseconds (defaults to now)")
	updateMetricCmd.MarkFlagRequired("app")
	updateMetricCmd.MarkFlagRequired("metric")
	updateMetricCmd.MarkFlagRequired("value")

	rootCmd.AddCommand(defineMetricCmd, updateMetricCmd)
}
