// monitorctl publishes operation envelopes to the monitor topic. Every
// subcommand builds one envelope, produces it and exits; the daemon applies
// the operation when it consumes the message.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "monitorctl",
	Short: "Publish operation envelopes to the monitor topic",
	Long: `monitorctl publishes operation envelopes to the monitor topic.

Operations are applied asynchronously by the monitor daemon; a successful
publish means the envelope was acknowledged by Kafka, not that the operation
was admitted.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("brokers", "B", "localhost:9092", "The Kafka brokers to use (comma-separated list)")
	rootCmd.PersistentFlags().StringP("topic", "t", "monitor-events", "The Kafka topic to publish envelopes to")
	rootCmd.PersistentFlags().StringP("caller", "c", "", "The identity the operation is performed as")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.MarkPersistentFlagRequired("caller")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
