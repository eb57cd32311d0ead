package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// metadataTimeout bounds Kafka metadata lookups.
const metadataTimeout = 10 * time.Second

// Sentinel errors for topic management operations.
var (
	// ErrTopicAlreadyExists is returned by CreateTopic when the topic exists.
	ErrTopicAlreadyExists = errors.New("topic already exists")

	// ErrCannotDecreasePartitions is returned by EnsureTopic when the topic
	// already has more partitions than configured. Kafka cannot shrink a topic.
	ErrCannotDecreasePartitions = errors.New("cannot decrease partition count")

	// ErrReplicationFactorMismatch is returned by EnsureTopic when the topic's
	// replication factor differs from the configured one. Changing it requires
	// manual partition reassignment.
	ErrReplicationFactorMismatch = errors.New("replication factor mismatch")
)

// TopicConfig describes the desired shape of a Kafka topic.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// Validate rejects configs that cannot produce a valid topic.
func (tc TopicConfig) Validate() error {
	if tc.Name == "" {
		return errors.New("topic name cannot be empty")
	}
	if tc.NumPartitions <= 0 {
		return fmt.Errorf("number of partitions must be > 0, got %d", tc.NumPartitions)
	}
	if tc.ReplicationFactor <= 0 {
		return fmt.Errorf("replication factor must be > 0, got %d", tc.ReplicationFactor)
	}
	return nil
}

// TopicMetadata looks up a topic and returns its metadata, or nil metadata
// when the topic does not exist. The error is reserved for lookup failures
// such as broker or authorization problems.
func TopicMetadata(admin *kafka.AdminClient, topicName string) (*kafka.TopicMetadata, error) {
	metadata, err := admin.GetMetadata(&topicName, false, int(metadataTimeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for topic %q: %w", topicName, err)
	}

	topicMetadata, exists := metadata.Topics[topicName]
	if !exists || topicMetadata.Error.Code() == kafka.ErrUnknownTopicOrPart {
		// A missing topic is an answer, not a failure.
		return nil, nil
	}

	if topicMetadata.Error.Code() != kafka.ErrNoError {
		return nil, fmt.Errorf("topic %q has error: %w", topicName, topicMetadata.Error)
	}

	return &topicMetadata, nil
}

// CreateTopic creates a topic with the given shape. An existing topic is
// reported as an error wrapping ErrTopicAlreadyExists.
func CreateTopic(
	ctx context.Context,
	admin *kafka.AdminClient,
	config TopicConfig,
	log *zap.SugaredLogger,
) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid topic config: %w", err)
	}

	spec := kafka.TopicSpecification{
		Topic:             config.Name,
		NumPartitions:     config.NumPartitions,
		ReplicationFactor: config.ReplicationFactor,
	}

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{spec})
	if err != nil {
		return fmt.Errorf("failed to create topic %q: %w", config.Name, err)
	}

	// One spec in, one result out.
	for _, result := range results {
		switch result.Error.Code() {
		case kafka.ErrNoError:
			log.Infow("created topic",
				"topic", result.Topic,
				"partitions", config.NumPartitions,
				"replicationFactor", config.ReplicationFactor)
		case kafka.ErrTopicAlreadyExists:
			return fmt.Errorf("topic %q: %w", result.Topic, ErrTopicAlreadyExists)
		default:
			return fmt.Errorf("failed to create topic %q: %w", result.Topic, result.Error)
		}
	}

	return nil
}

// EnsureTopic converges a topic toward the desired shape. Missing topics are
// created and partition counts are grown when the config asks for more.
// Shapes Kafka cannot converge are reported as sentinel errors: a topic that
// already has more partitions than configured yields
// ErrCannotDecreasePartitions, and a differing replication factor yields
// ErrReplicationFactorMismatch.
func EnsureTopic(
	ctx context.Context,
	admin *kafka.AdminClient,
	config TopicConfig,
	log *zap.SugaredLogger,
) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid topic config: %w", err)
	}

	topicMetadata, err := TopicMetadata(admin, config.Name)
	if err != nil {
		return fmt.Errorf("failed to check topic existence: %w", err)
	}

	if topicMetadata == nil {
		return CreateTopic(ctx, admin, config, log)
	}

	currentPartitions := len(topicMetadata.Partitions)
	currentRF := getReplicationFactor(topicMetadata)

	log.Infow("topic exists",
		"topic", config.Name,
		"currentPartitions", currentPartitions,
		"currentReplicationFactor", currentRF)

	if currentRF != config.ReplicationFactor {
		return fmt.Errorf("topic %q has replication factor %d, want %d: %w",
			config.Name, currentRF, config.ReplicationFactor, ErrReplicationFactorMismatch)
	}

	switch {
	case currentPartitions < config.NumPartitions:
		log.Infow("increasing topic partitions",
			"topic", config.Name,
			"from", currentPartitions,
			"to", config.NumPartitions)
		return increasePartitions(ctx, admin, config.Name, config.NumPartitions, log)

	case currentPartitions > config.NumPartitions:
		return fmt.Errorf("topic %q has %d partitions, want %d: %w",
			config.Name, currentPartitions, config.NumPartitions, ErrCannotDecreasePartitions)

	default:
		return nil
	}
}

// increasePartitions grows an existing topic to newPartitionCount.
func increasePartitions(
	ctx context.Context,
	admin *kafka.AdminClient,
	topicName string,
	newPartitionCount int,
	log *zap.SugaredLogger,
) error {
	partitionSpec := []kafka.PartitionsSpecification{
		{
			Topic:      topicName,
			IncreaseTo: newPartitionCount,
		},
	}

	results, err := admin.CreatePartitions(ctx, partitionSpec)
	if err != nil {
		return fmt.Errorf("failed to increase partitions for topic %q: %w", topicName, err)
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError {
			return fmt.Errorf("failed to increase partitions for topic %q: %w", result.Topic, result.Error)
		}
		log.Infow("increased partitions",
			"topic", result.Topic,
			"newPartitionCount", newPartitionCount)
	}

	return nil
}

// getReplicationFactor reads the replica count off the first partition.
// Topics without partitions report 0.
func getReplicationFactor(metadata *kafka.TopicMetadata) int {
	if len(metadata.Partitions) == 0 {
		return 0
	}
	return len(metadata.Partitions[0].Replicas)
}
