package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
)

var submitEventCmd = &cobra.Command{
	Use:   "submit-event",
	Short: "Submit a single event for capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmd.Flags().GetString("app")
		if err != nil {
			return fmt.Errorf("failed to get app: %w", err)
		}
		chain, err := cmd.Flags().GetString("chain")
		if err != nil {
			return fmt.Errorf("failed to get chain: %w", err)
		}
		eventType, err := cmd.Flags().GetString("event-type")
		if err != nil {
			return fmt.Errorf("failed to get event type: %w", err)
		}
		data, err := cmd.Flags().GetString("data")
		if err != nil {
			return fmt.Errorf("failed to get data: %w", err)
		}
		txHash, err := cmd.Flags().GetString("tx-hash")
		if err != nil {
			return fmt.Errorf("failed to get tx hash: %w", err)
		}
		severity, err := cmd.Flags().GetString("severity")
		if err != nil {
			return fmt.Errorf("failed to get severity: %w", err)
		}
		timestamp, err := cmd.Flags().GetUint64("timestamp")
		if err != nil {
			return fmt.Errorf("failed to get timestamp: %w", err)
		}
		if timestamp == 0 {
			timestamp = uint64(time.Now().UnixMilli())
		}
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("event data is not valid JSON: %s", data)
		}

		event := &messages.Event{
			SourceApp:       app,
			SourceChain:     chain,
			Timestamp:       timestamp,
			EventType:       eventType,
			Data:            json.RawMessage(data),
			TransactionHash: txHash,
			Severity:        severity,
		}
		if cmd.Flags().Changed("block-height") {
			height, err := cmd.Flags().GetUint64("block-height")
			if err != nil {
				return fmt.Errorf("failed to get block height: %w", err)
			}
			event.BlockHeight = &height
		}
		if err := event.Validate(); err != nil {
			return err
		}

		return publishEnvelope(cmd, messages.TypeEventCapture, event)
	},
}

func init() {
	submitEventCmd.Flags().StringP("app", "a", "", "The source application ID")
	submitEventCmd.Flags().String("chain", "", "The source chain ID")
	submitEventCmd.Flags().StringP("event-type", "e", "", "The event type")
	submitEventCmd.Flags().StringP("data", "d", "{}", "The event payload as JSON")
	submitEventCmd.Flags().String("tx-hash", "", "The transaction hash the event came from")
	submitEventCmd.Flags().Uint64("block-height", 0, "The block height the event was observed at")
	submitEventCmd.Flags().StringP("severity", "s", "info", "The event severity (info, warning, error, critical)")
	submitEventCmd.Flags().Uint64("timestamp", 0, "The event timestamp in milliseconds (defaults to now)")

	submitEventCmd.MarkFlagRequired("app")
	submitEventCmd.MarkFlagRequired("event-type")

	rootCmd.AddCommand(submitEventCmd)
}
