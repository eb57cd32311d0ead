package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
)

var addAppCmd = &cobra.Command{
	Use:   "add-app",
	Short: "Register an application for monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := cmd.Flags().GetString("app")
		if err != nil {
			return fmt.Errorf("failed to get app: %w", err)
		}
		chainID, err := cmd.Flags().GetString("chain")
		if err != nil {
			return fmt.Errorf("failed to get chain: %w", err)
		}
		endpoint, err := cmd.Flags().GetString("endpoint")
		if err != nil {
			return fmt.Errorf("failed to get endpoint: %w", err)
		}
		enabled, err := cmd.Flags().GetBool("enabled")
		if err != nil {
			return fmt.Errorf("failed to get enabled: %w", err)
		}
		priority, err := cmd.Flags().GetUint8("priority")
		if err != nil {
			return fmt.Errorf("failed to get priority: %w", err)
		}
		tags, err := cmd.Flags().GetStringSlice("tags")
		if err != nil {
			return fmt.Errorf("failed to get tags: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeAppAdd, &messages.AppAdd{
			ApplicationID: appID,
			ChainID:       chainID,
			Endpoint:      endpoint,
			Enabled:       enabled,
			Priority:      priority,
			Tags:          tags,
		})
	},
}

var updateAppCmd = &cobra.Command{
	Use:   "update-app",
	Short: "Replace the configuration of a registered application",
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := cmd.Flags().GetString("app")
		if err != nil {
			return fmt.Errorf("failed to get app: %w", err)
		}
		chainID, err := cmd.Flags().GetString("chain")
		if err != nil {
			return fmt.Errorf("failed to get chain: %w", err)
		}
		endpoint, err := cmd.Flags().GetString("endpoint")
		if err != nil {
			return fmt.Errorf("failed to get endpoint: %w", err)
		}
		enabled, err := cmd.Flags().GetBool("enabled")
		if err != nil {
			return fmt.Errorf("failed to get enabled: %w", err)
		}
		priority, err := cmd.Flags().GetUint8("priority")
		if err != nil {
			return fmt.Errorf("failed to get priority: %w", err)
		}
		tags, err := cmd.Flags().GetStringSlice("tags")
		if err != nil {
			return fmt.Errorf("failed to get tags: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeAppUpdate, &messages.AppUpdate{
			ApplicationID: appID,
			ChainID:       chainID,
			Endpoint:      endpoint,
			Enabled:       enabled,
			Priority:      priority,
			Tags:          tags,
		})
	},
}

var removeAppCmd = &cobra.Command{
	Use:   "remove-app",
	Short: "Drop an application from the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := cmd.Flags().GetString("app")
		if err != nil {
			return fmt.Errorf("failed to get app: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeAppRemove, &messages.AppRemove{ApplicationID: appID})
	},
}

func init() {
	addAppCmd.Flags().StringP("app", "a", "", "The application ID")
	addAppCmd.Flags().String("chain", "", "The chain the application runs on")
	addAppCmd.Flags().String("endpoint", "", "The application endpoint")
	addAppCmd.Flags().Bool("enabled", true, "Whether the application starts enabled")
	addAppCmd.Flags().Uint8("priority", 0, "The monitoring priority")
	addAppCmd.Flags().StringSlice("tags", nil, "Tags attached to the application")
	addAppCmd.MarkFlagRequired("app")
	addAppCmd.MarkFlagRequired("chain")

	updateAppCmd.Flags().StringP("app", "a", "", "The application ID")
	updateAppCmd.Flags().String("chain", "", "The chain the application runs on")
	updateAppCmd.Flags().String("endpoint", "", "The application endpoint")
	updateAppCmd.Flags().Bool("enabled", true, "Whether the application starts enabled")
	updateAppCmd.Flags().Uint8("priority", 0, "The monitoring priority")
	updateAppCmd.Flags().StringSlice("tags", nil, "Tags attached to the application")
	updateAppCmd.MarkFlagRequired("app")
	updateAppCmd.MarkFlagRequired("chain")

	removeAppCmd.Flags().StringP("app", "a", "", "The application ID")
	removeAppCmd.MarkFlagRequired("app")

	rootCmd.AddCommand(addAppCmd, updateAppCmd, removeAppCmd)
}
