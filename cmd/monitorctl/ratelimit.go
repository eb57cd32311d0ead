package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
)

var setRateLimitCmd = &cobra.Command{
	Use:   "set-rate-limit",
	Short: "Replace the whole rate-limit configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxEvents, err := cmd.Flags().GetUint64("max-events-per-block")
		if err != nil {
			return fmt.Errorf("failed to get max events per block: %w", err)
		}
		globalMax, err := cmd.Flags().GetUint64("global-max-events-per-block")
		if err != nil {
			return fmt.Errorf("failed to get global max events per block: %w", err)
		}
		burst, err := cmd.Flags().GetFloat64("burst-multiplier")
		if err != nil {
			return fmt.Errorf("failed to get burst multiplier: %w", err)
		}
		cooldown, err := cmd.Flags().GetUint64("cooldown-blocks")
		if err != nil {
			return fmt.Errorf("failed to get cooldown blocks: %w", err)
		}
		enabled, err := cmd.Flags().GetBool("enabled")
		if err != nil {
			return fmt.Errorf("failed to get enabled: %w", err)
		}
		return publishEnvelope(cmd, messages.TypeRateLimitSet, &messages.RateLimitSet{
			MaxEventsPerBlock:       maxEvents,
			GlobalMaxEventsPerBlock: globalMax,
			BurstMultiplier:         burst,
			CooldownBlocks:          cooldown,
			Enabled:                 enabled,
		})
	},
}

var updateRateLimitCmd = &cobra.Command{
	Use:   "update-rate-limit",
	Short: "Change individual rate-limit fields, keeping the rest",
	RunE: func(cmd *cobra.Command, args []string) error {
		update := &messages.RateLimitUpdate{}
		changed := false
		if cmd.Flags().Changed("max-events-per-block") {
			v, err := cmd.Flags().GetUint64("max-events-per-block")
			if err != nil {
				return fmt.Errorf("failed to get max events per block: %w", err)
			}
			update.MaxEventsPerBlock = &v
			changed = true
		}
		if cmd.Flags().Changed("global-max-events-per-block") {
			v, err := cmd.Flags().GetUint64("global-max-events-per-block")
			if err != nil {
				return fmt.Errorf("failed to get global max events per block: %w", err)
			}
			update.GlobalMaxEventsPerBlock = &v
			changed = true
		}
		if cmd.Flags().Changed("burst-multiplier") {
			v, err := cmd.Flags().GetFloat64("burst-multiplier")
			if err != nil {
				return fmt.Errorf("failed to get burst multiplier: %w", err)
			}
			update.BurstMultiplier = &v
			changed = true
		}
		if cmd.Flags().Changed("cooldown-blocks") {
			v, err := cmd.Flags().GetUint64("cooldown-blocks")
			if err != nil {
				return fmt.Errorf("failed to get cooldown blocks: %w", err)
			}
			update.CooldownBlocks = &v
			changed = true
		}
		if cmd.Flags().Changed("enabled") {
			v, err := cmd.Flags().GetBool("enabled")
			if err != nil {
				return fmt.Errorf("failed to get enabled: %w", err)
			}
			update.Enabled = &v
			changed = true
		}
		if !changed {
			return fmt.Errorf("no rate-limit fields specified")
		}
		return publishEnvelope(cmd, messages.TypeRateLimitUpdate, update)
	},
}

func init() {
	setRateLimitCmd.Flags().Uint64("max-events-per-block", 100, "The per-application limit per monitoring block")
	setRateLimitCmd.Flags().Uint64("global-max-events-per-block", 1000, "The global limit per monitoring block")
	setRateLimitCmd.Flags().Float64("burst-multiplier", 1.5, "The burst headroom multiplier")
	setRateLimitCmd.Flags().Uint64("cooldown-blocks", 5, "The number of blocks an application stays blocked")
	setRateLimitCmd.Flags().Bool("enabled", true, "Enable rate limiting")

	updateRateLimitCmd.Flags().Uint64("max-events-per-block", 0, "The per-application limit per monitoring block")
	updateRateLimitCmd.Flags().Uint64("global-max-events-per-block", 0, "The global limit per monitoring block")
	updateRateLimitCmd.Flags().Float64("burst-multiplier", 0, "The burst headroom multiplier")
	updateRateLimitCmd.Flags().Uint64("cooldown-blocks", 0, "The number of blocks an application stays blocked")
	updateRateLimitCmd.Flags().Bool("enabled", false, "Enable rate limiting")

	rootCmd.AddCommand(setRateLimitCmd, updateRateLimitCmd)
}
