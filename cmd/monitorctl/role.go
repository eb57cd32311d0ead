package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
	"github.com/chainsentry/eventmonitor/pkg/rbac"
)

var assignRoleCmd = &cobra.Command{
	Use:   "assign-role",
	Short: "Grant an identity a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := cmd.Flags().GetString("target")
		if err != nil {
			return fmt.Errorf("failed to get target: %w", err)
		}
		roleName, err := cmd.Flags().GetString("role")
		if err != nil {
			return fmt.Errorf("failed to get role: %w", err)
		}
		// fail before publishing on an unknown role name
		if _, err := rbac.ParseRole(roleName); err != nil {
			return err
		}
		return publishEnvelope(cmd, messages.TypeRoleAssign, &messages.RoleAssign{
			Target: target,
			Role:   roleName,
		})
	},
}

var removeRoleCmd = &cobra.Command{
	Use:   "remove-role",
	Short: "Revert an identity to the default role",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := cmd.Flags().GetString("target")
		if err != nil {
			return fmt.Errorf("failed to get target: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeRoleRemove, &messages.RoleRemove{Target: target})
	},
}

func init() {
	assignRoleCmd.Flags().StringP("target", "T", "", "The identity to grant the role to")
	assignRoleCmd.Flags().StringP("role", "r", "", "The role name (viewer, data_ingester, operator, admin)")
	assignRoleCmd.MarkFlagRequired("target")
	assignRoleCmd.MarkFlagRequired("role")

	removeRoleCmd.Flags().StringP("target", "T", "", "The identity to revert")
	removeRoleCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(assignRoleCmd, removeRoleCmd)
}
