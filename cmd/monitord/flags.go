package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

// runFlags returns all CLI flags for the monitord run command.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
			Value:   false,
		},
		&cli.StringFlag{
			Name:     "super-admin",
			Aliases:  []string{"a"},
			Usage:    "The identity that holds the super admin role",
			EnvVars:  []string{"SUPER_ADMIN"},
			Required: true,
		},
		&cli.IntFlag{
			Name:    "merkle-depth",
			Usage:   "The declared depth of the event integrity index",
			EnvVars: []string{"MERKLE_DEPTH"},
			Value:   16,
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "The Kafka brokers to use (comma-separated list)",
			EnvVars: []string{"KAFKA_BROKERS"},
			Value:   "localhost:9092",
		},
		&cli.StringFlag{
			Name:    "kafka-topic",
			Aliases: []string{"t"},
			Usage:   "The Kafka topic to consume operation envelopes from",
			EnvVars: []string{"KAFKA_TOPIC"},
			Value:   "monitor-events",
		},
		&cli.StringFlag{
			Name:    "kafka-dlq-topic",
			Usage:   "The dead letter queue topic for failed messages",
			EnvVars: []string{"KAFKA_DLQ_TOPIC"},
			Value:   "monitor-events-dlq",
		},
		&cli.StringFlag{
			Name:    "kafka-group-id",
			Aliases: []string{"g"},
			Usage:   "The consumer group ID",
			EnvVars: []string{"KAFKA_GROUP_ID"},
			Value:   "monitor-consumer-group",
		},
		&cli.StringFlag{
			Name:    "kafka-auto-offset-reset",
			Usage:   "Offset reset strategy: earliest or latest",
			EnvVars: []string{"KAFKA_AUTO_OFFSET_RESET"},
			Value:   "earliest",
		},
		&cli.Int64Flag{
			Name:    "kafka-concurrency",
			Aliases: []string{"c"},
			Usage:   "The maximum number of concurrent message processors",
			EnvVars: []string{"KAFKA_CONCURRENCY"},
			Value:   10,
		},
		&cli.BoolFlag{
			Name:    "kafka-enable-logs",
			Aliases: []string{"l"},
			Usage:   "Enable librdkafka client logs",
			EnvVars: []string{"KAFKA_ENABLE_LOGS"},
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "kafka-client-id",
			Usage:   "The Kafka client ID to use",
			EnvVars: []string{"KAFKA_CLIENT_ID"},
			Value:   "monitord",
		},
		&cli.IntFlag{
			Name:    "kafka-topic-num-partitions",
			Usage:   "The number of partitions for created topics",
			EnvVars: []string{"KAFKA_TOPIC_NUM_PARTITIONS"},
			Value:   1,
		},
		&cli.IntFlag{
			Name:    "kafka-topic-replication-factor",
			Usage:   "The replication factor for created topics",
			EnvVars: []string{"KAFKA_TOPIC_REPLICATION_FACTOR"},
			Value:   1,
		},
		&cli.StringFlag{
			Name:    "alerts-topic",
			Usage:   "The Kafka topic to publish high-severity alerts to",
			EnvVars: []string{"ALERTS_TOPIC"},
			Value:   "monitor-alerts",
		},
		&cli.StringFlag{
			Name:    "alert-severity",
			Usage:   "The minimum severity that triggers an alert (info, warning, error, critical)",
			EnvVars: []string{"ALERT_SEVERITY"},
			Value:   "error",
		},
		&cli.StringFlag{
			Name:    "events-table",
			Usage:   "The name of the ClickHouse table to archive events to",
			EnvVars: []string{"EVENTS_TABLE"},
			Value:   "monitor_events",
		},
		&cli.StringFlag{
			Name:    "snapshots-table",
			Usage:   "The name of the ClickHouse table to write state snapshots to",
			EnvVars: []string{"SNAPSHOTS_TABLE"},
			Value:   "monitor_snapshots",
		},
		&cli.IntFlag{
			Name:    "archive-batch-size",
			Usage:   "The maximum number of event rows buffered before a flush",
			EnvVars: []string{"ARCHIVE_BATCH_SIZE"},
			Value:   1000,
		},
		&cli.DurationFlag{
			Name:    "archive-flush-interval",
			Usage:   "The interval between time-based archive flushes",
			EnvVars: []string{"ARCHIVE_FLUSH_INTERVAL"},
			Value:   5 * time.Second,
		},
		&cli.DurationFlag{
			Name:    "snapshot-interval",
			Aliases: []string{"i"},
			Usage:   "The interval between state snapshot writes",
			EnvVars: []string{"SNAPSHOT_INTERVAL"},
			Value:   1 * time.Minute,
		},
		&cli.DurationFlag{
			Name:    "block-interval",
			Aliases: []string{"b"},
			Usage:   "The interval between monitoring block advances",
			EnvVars: []string{"BLOCK_INTERVAL"},
			Value:   2 * time.Second,
		},
		&cli.Uint64Flag{
			Name:    "max-events-per-block",
			Usage:   "The per-application rate limit per monitoring block",
			EnvVars: []string{"MAX_EVENTS_PER_BLOCK"},
			Value:   100,
		},
		&cli.Uint64Flag{
			Name:    "global-max-events-per-block",
			Usage:   "The global rate limit per monitoring block",
			EnvVars: []string{"GLOBAL_MAX_EVENTS_PER_BLOCK"},
			Value:   1000,
		},
		&cli.Float64Flag{
			Name:    "burst-multiplier",
			Usage:   "The burst headroom multiplier applied to both rate limits",
			EnvVars: []string{"BURST_MULTIPLIER"},
			Value:   1.5,
		},
		&cli.Uint64Flag{
			Name:    "cooldown-blocks",
			Usage:   "The number of blocks an application stays blocked after a limit hit",
			EnvVars: []string{"COOLDOWN_BLOCKS"},
			Value:   5,
		},
		&cli.BoolFlag{
			Name:    "rate-limit-enabled",
			Usage:   "Enable rate limiting",
			EnvVars: []string{"RATE_LIMIT_ENABLED"},
			Value:   true,
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "The host to bind the metrics server to (empty for all interfaces)",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Aliases: []string{"p"},
			Usage:   "The port to serve Prometheus metrics on",
			EnvVars: []string{"METRICS_PORT"},
			Value:   8081,
		},
		&cli.StringFlag{
			Name:    "instance-id",
			Usage:   "Instance identifier attached to every metric",
			EnvVars: []string{"INSTANCE_ID"},
			Value:   "monitord-1",
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "Deployment environment label (production, staging, development)",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "development",
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Cloud region label",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Usage:   "Cloud provider label",
			EnvVars: []string{"CLOUD_PROVIDER"},
			Value:   "",
		},
	}
}
