package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause event ingestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEnvelope(cmd, messages.TypeIngestPause, struct{}{})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume event ingestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEnvelope(cmd, messages.TypeIngestResume, struct{}{})
	},
}

var unblockAppCmd = &cobra.Command{
	Use:   "unblock-app",
	Short: "Clear an application's rate-limit cooldown",
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := cmd.Flags().GetString("app")
		if err != nil {
			return fmt.Errorf("failed to get app: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeIngestUnblock, &messages.IngestUnblock{AppID: appID})
	},
}

var clearEventsCmd = &cobra.Command{
	Use:   "clear-events",
	Short: "Remove all captured events and reset the integrity index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEnvelope(cmd, messages.TypeEventsClear, struct{}{})
	},
}

var rebuildMerkleCmd = &cobra.Command{
	Use:   "rebuild-merkle",
	Short: "Recompute the integrity index from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEnvelope(cmd, messages.TypeMerkleRebuild, struct{}{})
	},
}

var transferSuperAdminCmd = &cobra.Command{
	Use:   "transfer-super-admin",
	Short: "Hand the super admin role to a new identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := cmd.Flags().GetString("to")
		if err != nil {
			return fmt.Errorf("failed to get target: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeAdminTransfer, &messages.AdminTransfer{NewSuperAdmin: target})
	},
}

func init() {
	unblockAppCmd.Flags().StringP("app", "a", "", "The application ID to unblock")
	unblockAppCmd.MarkFlagRequired("app")

	transferSuperAdminCmd.Flags().String("to", "", "The identity to transfer the super admin role to")
	transferSuperAdminCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(pauseCmd, resumeCmd, unblockAppCmd, clearEventsCmd, rebuildMerkleCmd, transferSuperAdminCmd)
}
