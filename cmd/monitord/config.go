package main

import (
	"fmt"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/urfave/cli/v2"

	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/kafka"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
)

// Config holds all configuration for the monitord daemon.
type Config struct {
	// Application settings
	Verbose     bool
	SuperAdmin  string
	MerkleDepth int

	// Kafka settings
	KafkaBrokers                string
	KafkaTopic                  string
	KafkaDLQTopic               string
	KafkaGroupID                string
	KafkaAutoOffsetReset        string
	KafkaConcurrency            int64
	KafkaEnableLogs             bool
	KafkaClientID               string
	KafkaTopicNumPartitions     int
	KafkaTopicReplicationFactor int

	// Alert settings
	AlertsTopic   string
	AlertSeverity types.Severity

	// Archive settings
	EventsTable          string
	SnapshotsTable       string
	ArchiveBatchSize     int
	ArchiveFlushInterval time.Duration
	SnapshotInterval     time.Duration

	// Rate limiter settings
	BlockInterval time.Duration
	RateLimit     ratelimit.Config

	// Metrics settings
	MetricsHost   string
	MetricsPort   int
	InstanceID    string
	Environment   string
	Region        string
	CloudProvider string
}

// MetricsAddr returns the formatted metrics listen address.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// ConsumerConfig builds the Kafka consumer configuration. Timeout fields are
// left nil so WithDefaults fills them in.
func (c *Config) ConsumerConfig() kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		DLQTopic:                    c.KafkaDLQTopic,
		Topic:                       c.KafkaTopic,
		BootstrapServers:            c.KafkaBrokers,
		GroupID:                     c.KafkaGroupID,
		AutoOffsetReset:             c.KafkaAutoOffsetReset,
		Concurrency:                 c.KafkaConcurrency,
		OffsetManagerCommitInterval: 10 * time.Second,
		EnableLogs:                  c.KafkaEnableLogs,
	}
}

// AlertPublisherConfig builds the producer ConfigMap for the alerts topic.
func (c *Config) AlertPublisherConfig() *confluentKafka.ConfigMap {
	return &confluentKafka.ConfigMap{
		"bootstrap.servers":      c.KafkaBrokers,
		"client.id":              c.KafkaClientID,
		"acks":                   "all",
		"linger.ms":              5,
		"batch.size":             16384,
		"compression.type":       "lz4",
		"enable.idempotence":     true,
		"go.logs.channel.enable": c.KafkaEnableLogs,
	}
}

// buildConfig builds a Config from CLI context flags.
func buildConfig(c *cli.Context) (*Config, error) {
	severity, err := types.ParseSeverity(c.String("alert-severity"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert severity: %w", err)
	}

	return &Config{
		Verbose:                     c.Bool("verbose"),
		SuperAdmin:                  c.String("super-admin"),
		MerkleDepth:                 c.Int("merkle-depth"),
		KafkaBrokers:                c.String("kafka-brokers"),
		KafkaTopic:                  c.String("kafka-topic"),
		KafkaDLQTopic:               c.String("kafka-dlq-topic"),
		KafkaGroupID:                c.String("kafka-group-id"),
		KafkaAutoOffsetReset:        c.String("kafka-auto-offset-reset"),
		KafkaConcurrency:            c.Int64("kafka-concurrency"),
		KafkaEnableLogs:             c.Bool("kafka-enable-logs"),
		KafkaClientID:               c.String("kafka-client-id"),
		KafkaTopicNumPartitions:     c.Int("kafka-topic-num-partitions"),
		KafkaTopicReplicationFactor: c.Int("kafka-topic-replication-factor"),
		AlertsTopic:                 c.String("alerts-topic"),
		AlertSeverity:               severity,
		EventsTable:                 c.String("events-table"),
		SnapshotsTable:              c.String("snapshots-table"),
		ArchiveBatchSize:            c.Int("archive-batch-size"),
		ArchiveFlushInterval:        c.Duration("archive-flush-interval"),
		SnapshotInterval:            c.Duration("snapshot-interval"),
		BlockInterval:               c.Duration("block-interval"),
		RateLimit: ratelimit.Config{
			MaxEventsPerBlock:       c.Uint64("max-events-per-block"),
			GlobalMaxEventsPerBlock: c.Uint64("global-max-events-per-block"),
			BurstMultiplier:         c.Float64("burst-multiplier"),
			CooldownBlocks:          c.Uint64("cooldown-blocks"),
			Enabled:                 c.Bool("rate-limit-enabled"),
		},
		MetricsHost:   c.String("metrics-host"),
		MetricsPort:   c.Int("metrics-port"),
		InstanceID:    c.String("instance-id"),
		Environment:   c.String("environment"),
		Region:        c.String("region"),
		CloudProvider: c.String("cloud-provider"),
	}, nil
}
